package domain

// Market represents a Polymarket binary prediction market. Each market has
// two outcome tokens; TokenIDs holds the ERC-1155 token IDs (76-digit
// decimal strings) in the same order as Outcomes.
type Market struct {
	ID              string
	Question        string
	Slug            string
	ConditionID     string
	TokenIDs        [2]string
	Outcomes        [2]string // e.g. ["Yes","No"]
	Active          bool
	Closed          bool
	Resolved        bool
	ResolvedOutcome string
	EndDate         string // ISO 8601, empty when the market has no end date
}

// TokenSide returns the outcome label for the given token ID, or "" when the
// token does not belong to this market.
func (m Market) TokenSide(tokenID string) string {
	for i, id := range m.TokenIDs {
		if id == tokenID {
			return m.Outcomes[i]
		}
	}
	return ""
}
