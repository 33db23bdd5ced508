package prompt

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TiktokenCounter counts tokens with a BPE encoding. It is an estimate for
// models with other vocabularies.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter loads the named encoding; "" selects cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = string(tokenizer.Cl100kBase)
	}
	codec, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", encoding, err)
	}
	return &TiktokenCounter{codec: codec}, nil
}

func (c *TiktokenCounter) Count(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
