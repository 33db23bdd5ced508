// Package dataset stages parallel source/reference documents on disk, one
// unit file per language side, for every requested split and pair.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/textio"
)

const (
	DefaultEndpoint = "https://datasets-server.huggingface.co"
	DefaultDataset  = "ai4bharat/Pralekha"
	// maxPageSize is the largest page the rows API serves.
	maxPageSize = 100
)

// Parallel holds the two aligned sides of one (split, pair).
type Parallel struct {
	Split  string
	Pair   internal.LanguagePair
	First  []string
	Second []string
}

// ErrTruncated means the rows API shortened at least one cell of the pair;
// the pair is not staged.
var ErrTruncated = errors.New("rows truncated by dataset host")

// Source fetches parallel documents for a split and pair. Implementations
// return an error wrapping internal.ErrDataUnavailable when the host does
// not have the requested data.
type Source interface {
	Name() string
	Fetch(ctx context.Context, split string, pair internal.LanguagePair) (*Parallel, error)
}

// HubConfig configures the Hugging Face datasets-server source.
type HubConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Dataset     string        `mapstructure:"name"`
	Token       string        `mapstructure:"token"`
	FirstField  string        `mapstructure:"src_field"`
	SecondField string        `mapstructure:"tgt_field"`
	PageSize    int           `mapstructure:"page_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryCount  int           `mapstructure:"retries"`
}

// HubSource pages through the datasets-server rows API. The dataset config
// is the split name and the dataset split is the pair id.
type HubSource struct {
	cfg  HubConfig
	http *resty.Client
}

func NewHubSource(cfg HubConfig) *HubSource {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.FirstField == "" {
		cfg.FirstField = "src_txt"
	}
	if cfg.SecondField == "" {
		cfg.SecondField = "tgt_txt"
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}

	c := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
		})
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &HubSource{cfg: cfg, http: c}
}

func (s *HubSource) Name() string {
	return "hf:" + s.cfg.Dataset
}

func (s *HubSource) Fetch(ctx context.Context, split string, pair internal.LanguagePair) (*Parallel, error) {
	out := &Parallel{Split: split, Pair: pair}

	for offset, total := 0, -1; total < 0 || offset < total; {
		resp, err := s.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"dataset": s.cfg.Dataset,
				"config":  split,
				"split":   pair.ID(),
				"offset":  strconv.Itoa(offset),
				"length":  strconv.Itoa(s.cfg.PageSize),
			}).
			Get("/rows")
		if err != nil {
			return nil, fmt.Errorf("rows request failed: %w", err)
		}

		body := resp.Body()
		switch code := resp.StatusCode(); {
		case code == 400 || code == 404 || code == 422:
			return nil, fmt.Errorf("%w: %s/%s on %s: %s", internal.ErrDataUnavailable,
				split, pair, s.cfg.Dataset, gjson.GetBytes(body, "error").String())
		case resp.IsError():
			return nil, fmt.Errorf("rows API returned status %d: %s", code, resp.String())
		}

		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("rows API returned invalid JSON")
		}
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return nil, fmt.Errorf("%w: %s", internal.ErrDataUnavailable, msg.String())
		}

		total = int(gjson.GetBytes(body, "num_rows_total").Int())
		rows := gjson.GetBytes(body, "rows").Array()
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			first := row.Get("row." + s.cfg.FirstField)
			second := row.Get("row." + s.cfg.SecondField)
			if !first.Exists() || !second.Exists() {
				return nil, fmt.Errorf("row %d lacks %s/%s fields", row.Get("row_idx").Int(), s.cfg.FirstField, s.cfg.SecondField)
			}
			if cells := row.Get("truncated_cells").Array(); len(cells) > 0 {
				return nil, fmt.Errorf("%w: %s/%s row %d (%s)", ErrTruncated,
					split, pair, row.Get("row_idx").Int(), cells[0].String())
			}
			out.First = append(out.First, first.String())
			out.Second = append(out.Second, second.String())
		}
		offset += len(rows)
	}

	if len(out.First) == 0 {
		return nil, fmt.Errorf("%w: %s/%s is empty", internal.ErrDataUnavailable, split, pair)
	}
	return out, nil
}

// DirSource reads an already staged tree laid out like the collector output,
// e.g. an offline copy of a previous download.
type DirSource struct {
	Root string
}

func (s *DirSource) Name() string {
	return "dir:" + s.Root
}

func (s *DirSource) Fetch(ctx context.Context, split string, pair internal.LanguagePair) (*Parallel, error) {
	layout := internal.Layout{DataRoot: s.Root}
	first, err := textio.ReadUnits(layout.DocFile(split, pair, pair.First))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s not found under %s", internal.ErrDataUnavailable, split, pair, s.Root)
	}
	if err != nil {
		return nil, err
	}
	second, err := textio.ReadUnits(layout.DocFile(split, pair, pair.Second))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s not found under %s", internal.ErrDataUnavailable, split, pair, s.Root)
	}
	if err != nil {
		return nil, err
	}
	return &Parallel{Split: split, Pair: pair, First: first, Second: second}, nil
}
