package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// outputWriter is the destination for rendered command output.
type outputWriter struct {
	io.Writer
}

// withOutput runs render against stdout or the named file.
func withOutput(path string, render func(*outputWriter) error) error {
	if path == "" {
		return render(&outputWriter{os.Stdout})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("app: create output %s: %w", path, err)
	}
	if err := render(&outputWriter{f}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// writeJSON renders any value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeCSV renders a header row plus record rows.
func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeTable renders tab-aligned rows.
func writeTable(w io.Writer, header []string, records [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, cell := range header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, cell)
	}
	fmt.Fprintln(tw)
	for _, rec := range records {
		for i, cell := range rec {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func renderRows(w io.Writer, format string, header []string, records [][]string, jsonValue any) error {
	switch format {
	case "table":
		return writeTable(w, header, records)
	case "csv":
		return writeCSV(w, header, records)
	case "json":
		return writeJSON(w, jsonValue)
	default:
		return fmt.Errorf("%w: format %q (want table, csv, json)", domain.ErrInvalidInput, format)
	}
}

func renderMarkets(w *outputWriter, format string, markets []domain.Market) error {
	header := []string{"ID", "QUESTION", "OUTCOMES", "TOKENS", "ACTIVE"}
	records := make([][]string, 0, len(markets))
	for _, m := range markets {
		question := m.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}
		records = append(records, []string{
			m.ID,
			question,
			m.Outcomes[0] + "/" + m.Outcomes[1],
			m.TokenIDs[0] + "," + m.TokenIDs[1],
			strconv.FormatBool(m.Active),
		})
	}
	return renderRows(w, format, header, records, markets)
}

func renderPoints(w *outputWriter, format string, points []domain.PricePoint) error {
	header := []string{"TIME", "PRICE"}
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{fmtTime(p.Timestamp), fmtFloat(p.Price)})
	}
	return renderRows(w, format, header, records, points)
}

func renderBars(w *outputWriter, format string, bars []domain.PriceBar) error {
	header := []string{"TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME"}
	records := make([][]string, 0, len(bars))
	for _, b := range bars {
		records = append(records, []string{
			fmtTime(b.Timestamp),
			fmtFloat(b.Open), fmtFloat(b.High), fmtFloat(b.Low), fmtFloat(b.Close),
			fmtFloat(b.Volume),
		})
	}
	return renderRows(w, format, header, records, bars)
}

func renderBook(w *outputWriter, format string, book domain.Orderbook) error {
	if format == "json" {
		return writeJSON(w, book)
	}

	header := []string{"SIDE", "PRICE", "SIZE"}
	records := make([][]string, 0, len(book.Bids)+len(book.Asks))
	// Asks first, best at the bottom, mirroring a depth ladder.
	for i := len(book.Asks) - 1; i >= 0; i-- {
		records = append(records, []string{"ask", fmtFloat(book.Asks[i].Price), fmtFloat(book.Asks[i].Size)})
	}
	for _, lvl := range book.Bids {
		records = append(records, []string{"bid", fmtFloat(lvl.Price), fmtFloat(lvl.Size)})
	}

	if format == "table" {
		fmt.Fprintf(w, "token %s at %s (synthetic=%t) mid=%.4f\n",
			book.TokenID, fmtTime(book.Timestamp), book.Synthetic, book.Mid())
	}
	return renderRows(w, format, header, records, book)
}
