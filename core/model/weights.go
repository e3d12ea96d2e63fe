package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// BatchWeights はバッチ推定器の重みを表す構造体（シリアライゼーション用）
type BatchWeights struct {
	// ModelType はモデルの種類（CensoredRegression等）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Likelihood は尤度の種類（truncated / censored）
	Likelihood string `json:"likelihood"`

	// Lower, Upper はスカラーの切断・打ち切り境界。
	// JSON では ±Inf を表現できないため nil が無限大を表す
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`

	// Coefficients はバッチ要素ごとの係数（B x P）
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts はバッチ要素ごとの切片（切片なしの場合は空）
	Intercepts []float64 `json:"intercepts,omitempty"`

	// Sigmas はバッチ要素ごとの誤差の標準偏差
	Sigmas []float64 `json:"sigmas"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は追加のメタデータ（学習時の統計、チェックサム等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// Bound は無限大を nil として境界値を格納する
func Bound(v float64) *float64 {
	if math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// BoundValue は nil を指定された符号の無限大として境界値を取り出す
func BoundValue(p *float64, sign int) float64 {
	if p == nil {
		return math.Inf(sign)
	}
	return *p
}

// ToJSON はBatchWeightsをJSON形式にシリアライズ
func (bw *BatchWeights) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(bw, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal weights")
	}
	return data, nil
}

// FromJSON はJSON形式からBatchWeightsをデシリアライズ
func (bw *BatchWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, bw); err != nil {
		return errors.Wrap(err, "failed to unmarshal weights")
	}
	return nil
}

// Validate はBatchWeightsの妥当性を検証
func (bw *BatchWeights) Validate() error {
	if bw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", bw.ModelType)
	}
	if bw.Version == "" {
		return errors.NewValidationError("version", "is required", bw.Version)
	}
	if !bw.IsFitted {
		if len(bw.Coefficients) > 0 {
			return errors.NewValidationError("coefficients", "unfitted model should not have coefficients", len(bw.Coefficients))
		}
		return nil
	}
	if len(bw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}

	nBatch := len(bw.Coefficients)
	nFeatures := len(bw.Coefficients[0])
	for _, row := range bw.Coefficients {
		if len(row) != nFeatures {
			return errors.NewDimensionError("BatchWeights.Validate", nFeatures, len(row), 2)
		}
	}
	if len(bw.Sigmas) != nBatch {
		return errors.NewDimensionError("BatchWeights.Validate", nBatch, len(bw.Sigmas), 0)
	}
	if len(bw.Intercepts) != 0 && len(bw.Intercepts) != nBatch {
		return errors.NewDimensionError("BatchWeights.Validate", nBatch, len(bw.Intercepts), 0)
	}
	for _, s := range bw.Sigmas {
		if !(s > 0) || math.IsInf(s, 0) {
			return errors.NewValidationError("sigmas", "must be positive and finite", s)
		}
	}
	return nil
}

// Checksum は係数・切片・標準偏差の SHA-256 を16進文字列で返す（検証用）
func (bw *BatchWeights) Checksum() string {
	data, _ := json.Marshal(struct {
		C [][]float64 `json:"c"`
		I []float64   `json:"i"`
		S []float64   `json:"s"`
	}{bw.Coefficients, bw.Intercepts, bw.Sigmas})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Clone はBatchWeightsのディープコピーを作成
func (bw *BatchWeights) Clone() *BatchWeights {
	clone := &BatchWeights{
		ModelType:       bw.ModelType,
		Version:         bw.Version,
		Likelihood:      bw.Likelihood,
		IsFitted:        bw.IsFitted,
		Coefficients:    make([][]float64, len(bw.Coefficients)),
		Hyperparameters: make(map[string]interface{}),
		Metadata:        make(map[string]interface{}),
	}
	if bw.Lower != nil {
		clone.Lower = Bound(*bw.Lower)
	}
	if bw.Upper != nil {
		clone.Upper = Bound(*bw.Upper)
	}

	for i, row := range bw.Coefficients {
		clone.Coefficients[i] = append([]float64(nil), row...)
	}
	clone.Intercepts = append([]float64(nil), bw.Intercepts...)
	clone.Sigmas = append([]float64(nil), bw.Sigmas...)

	for k, v := range bw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	for k, v := range bw.Metadata {
		clone.Metadata[k] = v
	}

	return clone
}
