package optim

import "math"

// Scheduler はステップ t における学習率を返します。
type Scheduler interface {
	LR(t int) float64
}

// CosineAnnealing は学習率を BaseLR から EtaMin までコサイン曲線で減衰させます。
// t >= TMax では EtaMin を返します。
type CosineAnnealing struct {
	BaseLR float64
	EtaMin float64
	TMax   int
}

// LR は η_min + (η_0 - η_min)(1 + cos(πt/T))/2 を返す
func (c CosineAnnealing) LR(t int) float64 {
	if c.TMax <= 0 || t >= c.TMax {
		return c.EtaMin
	}
	if t <= 0 {
		return c.BaseLR
	}
	return c.EtaMin + (c.BaseLR-c.EtaMin)*(1+math.Cos(math.Pi*float64(t)/float64(c.TMax)))/2
}

// Constant は常に同じ学習率を返します。
type Constant struct {
	Value float64
}

// LR returns the constant rate.
func (c Constant) LR(int) float64 { return c.Value }

// InverseTime は η_0 / (1 + decay·t) で学習率を減衰させます。
type InverseTime struct {
	BaseLR float64
	Decay  float64
}

// LR returns BaseLR / (1 + Decay*t).
func (s InverseTime) LR(t int) float64 {
	return s.BaseLR / (1 + s.Decay*float64(t))
}
