package model

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/tensor"
)

// BatchFitter はバッチ化された学習可能モデルのインターフェース
type BatchFitter interface {
	// Fit は B 個の独立した問題をまとめて学習させる
	Fit(ctx context.Context, X *tensor.Dense3, y *mat.Dense) error
}

// BatchPredictor はバッチ化された予測可能モデルのインターフェース
type BatchPredictor interface {
	// Predict は B x M の予測値を返す
	Predict(X *tensor.Dense3) (*mat.Dense, error)
}

// BatchScorer はスコアを計算できるモデルのインターフェース
type BatchScorer interface {
	Score(X *tensor.Dense3, y *mat.Dense) (float64, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// WeightExporter は重みをエクスポート可能なモデルのインターフェース
type WeightExporter interface {
	// ExportWeights はモデルの重みをエクスポート
	ExportWeights() (*BatchWeights, error)

	// ImportWeights はモデルの重みをインポート
	ImportWeights(weights *BatchWeights) error
}

// BatchRegressor はバッチ回帰モデルが満たすインターフェースの組み合わせ
type BatchRegressor interface {
	BatchFitter
	BatchPredictor
	BatchScorer
	ParameterGetter
	WeightExporter
	IsFitted() bool
}
