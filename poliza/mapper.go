package poliza

import (
	"context"
	"fmt"

	"github.com/warp/ctr-mapper/logger"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// MAPPER
// =============================================================================

// Group is the journal for one Translation Type.
type Group struct {
	TranslationType string
	Lines           []Line
}

// Mapper collects lines per Translation Type, keeping first-seen order.
type Mapper struct {
	params Params
	index  map[string]int
	groups []*Group
}

func NewMapper(params Params) (*Mapper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{params: params, index: make(map[string]int)}, nil
}

func (m *Mapper) Add(e Entry) {
	i, ok := m.index[e.TranslationType]
	if !ok {
		i = len(m.groups)
		m.index[e.TranslationType] = i
		m.groups = append(m.groups, &Group{TranslationType: e.TranslationType})
	}
	g := m.groups[i]
	g.Lines = append(g.Lines, NewLine(e, m.params.rate(e.Currency)))
}

func (m *Mapper) Groups() []*Group { return m.groups }

func (m *Mapper) Lines() int {
	n := 0
	for _, g := range m.groups {
		n += len(g.Lines)
	}
	return n
}

// =============================================================================
// RUN
// =============================================================================

// Result summarizes one completed mapping.
type Result struct {
	InputRows             int      `json:"input_rows"`
	MatchedRows           int      `json:"matched_rows"`
	OutputRows            int      `json:"output_rows"`
	Sheets                []string `json:"sheets"`
	FilteredByCompanyCode string   `json:"filtered_by_company_code,omitempty"`
}

// Map reads every data row of src into a Mapper. Like the maturity engine it
// is all-or-nothing: the first bad row fails the run.
func Map(ctx context.Context, src table.Source, params Params) (*Mapper, int, error) {
	m, err := NewMapper(params)
	if err != nil {
		return nil, 0, err
	}

	cur, err := src.Open(params.Layout)
	if err != nil {
		return nil, 0, fmt.Errorf("open ledger: %w", err)
	}
	defer cur.Close()

	b, err := cur.Header().Bind(RequiredColumns, OptionalColumns)
	if err != nil {
		return nil, 0, err
	}
	if params.CompanyCode != "" && !b.Has(fieldCompanyCode) {
		return nil, 0, &table.SchemaError{Missing: []string{"Company Code"}}
	}

	read := 0
	for cur.Next() {
		rec := cur.Record()
		if b.Blank(rec) {
			continue
		}
		read++
		if read%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		e, err := ParseEntry(b, rec)
		if err != nil {
			return nil, 0, err
		}
		if params.CompanyCode != "" && e.CompanyCode != params.CompanyCode {
			continue
		}
		m.Add(e)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("read ledger: %w", err)
	}

	if read == 0 {
		return nil, 0, table.ErrNoData
	}
	if m.Lines() == 0 {
		return nil, 0, &table.FilterError{CompanyCode: params.CompanyCode}
	}
	return m, read, nil
}

// Run maps src and writes one journal sheet per Translation Type to sink.
func Run(ctx context.Context, src table.Source, sink table.Sink, params Params) (Result, error) {
	log := logger.FromContext(ctx).With().Str("engine", "poliza").Logger()

	m, read, err := Map(ctx, src, params)
	if err != nil {
		return Result{}, err
	}
	sheets := m.Sheets()
	if err := sink.WriteSheets(sheets); err != nil {
		return Result{}, fmt.Errorf("write poliza: %w", err)
	}

	result := Result{
		InputRows:             read,
		MatchedRows:           m.Lines(),
		OutputRows:            m.Lines(),
		FilteredByCompanyCode: params.CompanyCode,
	}
	for _, s := range sheets {
		result.Sheets = append(result.Sheets, s.Name)
	}
	log.Info().
		Int("rows_read", result.InputRows).
		Int("lines", result.OutputRows).
		Strs("sheets", result.Sheets).
		Str("company_code", params.CompanyCode).
		Msg("poliza written")
	return result, nil
}
