package validation

// Option configures a parse.
type Option func(*parser)

// WithHouseEmail names the filler player's email. The house may sit more than
// once in a round.
func WithHouseEmail(email string) Option {
	return func(p *parser) {
		p.houseEmail = email
	}
}

// WithMaxRounds caps the number of rounds per session. Zero means no cap.
func WithMaxRounds(n int) Option {
	return func(p *parser) {
		p.maxRounds = n
	}
}
