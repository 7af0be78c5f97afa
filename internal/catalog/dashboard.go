package catalog

import "regexp"

var (
	positiveWords = regexp.MustCompile(`(?i)great|good|excellent|amazing|love`)
	negativeWords = regexp.MustCompile(`(?i)bad|poor|broken|disappoint|hate`)
)

type Sentiment struct {
	Positive bool
	Negative bool
}

// Classify matches comment against both keyword sets independently; a
// comment may be both positive and negative.
func Classify(comment string) Sentiment {
	return Sentiment{
		Positive: positiveWords.MatchString(comment),
		Negative: negativeWords.MatchString(comment),
	}
}

func averageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews))
}

func computeStats(c Catalog) Stats {
	st := Stats{ProductSalesPotential: make([]SalesPotential, 0, len(c))}

	for _, p := range c {
		st.TotalStock += p.Stock

		for _, r := range p.Reviews {
			s := Classify(r.Comment)
			if s.Positive {
				st.PositiveReviews++
			}
			if s.Negative {
				st.NegativeReviews++
			}
		}

		st.ProductSalesPotential = append(st.ProductSalesPotential, SalesPotential{
			Name:   p.Name,
			Stock:  p.Stock,
			Rating: averageRating(p.Reviews),
		})
	}

	return st
}
