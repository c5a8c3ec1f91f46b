package docscan

import (
	"regexp"
	"strconv"
	"strings"
)

type amountCandidate struct {
	amount int64   // smallest currency unit
	score  float64 // rough confidence in [0,1]
}

// Keyword lines are far more likely to carry the invoice total than a
// stray quantity or line item.
var totalKeywords = []string{"total", "amount due", "balance due", "grand total"}

var (
	// 1,234.56 / 1.234,56 / $1234.56 / 1234
	amountRE = regexp.MustCompile(`[$€£]?\s*([0-9]{1,3}(?:[.,][0-9]{3})*(?:[.,][0-9]{2})?|[0-9]{2,9})`)
	centsRE  = regexp.MustCompile(`[.,][0-9]{2}$`)
)

// ocrRepair undoes the digit confusions Tesseract makes most often in
// amount columns.
var ocrRepair = strings.NewReplacer("o", "0", "O", "0", "D", "0", "S", "5", "l", "1", "I", "1")

// bestAmountIn scans OCR text for amount-looking tokens and scores them:
// keyword proximity dominates, then magnitude breaks ties (totals tend
// to be the largest figure on the page).
func bestAmountIn(text string) amountCandidate {
	best := amountCandidate{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		keyword := lineHasKeyword(line)
		line = ocrRepair.Replace(line)
		for _, m := range amountRE.FindAllStringSubmatch(line, -1) {
			amt, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			score := 0.2
			if keyword {
				score += 0.5
			}
			if amt >= 100 { // at least one currency unit
				score += 0.1
			}
			if score > best.score || (score == best.score && amt > best.amount) {
				best = amountCandidate{amount: amt, score: score}
			}
		}
	}
	return best
}

func lineHasKeyword(line string) bool {
	low := strings.ToLower(line)
	for _, k := range totalKeywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}

// parseAmount normalizes a matched token to the smallest currency unit.
// A trailing two-digit group after '.' or ',' is treated as cents;
// anything else as whole units.
func parseAmount(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	hasCents := centsRE.MatchString(raw)
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) == 0 || len(digits) > 12 {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if !hasCents {
		v *= 100
	}
	return v, true
}
