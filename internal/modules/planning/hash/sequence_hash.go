package hash

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// SequenceHash returns the MD5 hex digest of the ordered (symbol, side, quantity)
// tuples of a sequence, rendered as a JSON array of arrays:
//
//	[["AAPL", "SELL", 5], ["SAP", "BUY", 3]]
//
// Only identity fields count; prices, priorities and reasons do not.
func SequenceHash(actions []models.ActionCandidate) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, a := range actions {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		b.WriteString(quote(a.Symbol))
		b.WriteString(", ")
		b.WriteString(quote(string(a.Side)))
		b.WriteString(", ")
		b.WriteString(strconv.Itoa(a.Quantity))
		b.WriteByte(']')
	}
	b.WriteByte(']')

	sum := md5.Sum([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}

func quote(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(encoded)
}
