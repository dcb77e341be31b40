package metrics

// Confusion holds the cells of a binary confusion matrix with 1 as the positive class.
type Confusion struct {
	TP int `json:"tp" yaml:"tp"`
	FP int `json:"fp" yaml:"fp"`
	TN int `json:"tn" yaml:"tn"`
	FN int `json:"fn" yaml:"fn"`
}

// NewConfusion counts matches between trueLabels and predictedLabels.
// Both slices must already be validated: equal length, values in {0, 1}.
func NewConfusion(trueLabels, predictedLabels []int) Confusion {
	var c Confusion
	for i, y := range trueLabels {
		switch {
		case y == 1 && predictedLabels[i] == 1:
			c.TP++
		case y == 0 && predictedLabels[i] == 1:
			c.FP++
		case y == 0 && predictedLabels[i] == 0:
			c.TN++
		default:
			c.FN++
		}
	}
	return c
}

// Total returns the number of observations.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy is the fraction of exact matches.
func (c Confusion) Accuracy() float64 {
	return safeDiv(c.TP+c.TN, c.Total())
}

// Precision is TP/(TP+FP), 0 when nothing was predicted positive.
func (c Confusion) Precision() float64 {
	return safeDiv(c.TP, c.TP+c.FP)
}

// Recall is TP/(TP+FN), 0 when there are no positive labels.
func (c Confusion) Recall() float64 {
	return safeDiv(c.TP, c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall, 0 when both are 0.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func safeDiv(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
