package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// SaveWeights は重みを gob 形式でファイルに保存する
//
// 使用例:
//
//	w, _ := reg.ExportWeights()
//	err := model.SaveWeights(w, "weights.gob")
func SaveWeights(weights *BatchWeights, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	return SaveWeightsToWriter(weights, file)
}

// LoadWeights はファイルから gob 形式の重みを読み込む
func LoadWeights(filename string) (*BatchWeights, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadWeightsFromReader(file)
}

// SaveWeightsToWriter は重みをio.Writerに保存する
func SaveWeightsToWriter(weights *BatchWeights, w io.Writer) error {
	if weights == nil {
		return errors.NewValueError("SaveWeights", "weights cannot be nil")
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(weights); err != nil {
		return errors.Wrap(err, "failed to encode weights")
	}
	return nil
}

// LoadWeightsFromReader はio.Readerから重みを読み込み、検証する
func LoadWeightsFromReader(r io.Reader) (*BatchWeights, error) {
	var weights BatchWeights
	if err := gob.NewDecoder(r).Decode(&weights); err != nil {
		return nil, errors.Wrap(err, "failed to decode weights")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &weights, nil
}
