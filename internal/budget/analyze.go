package budget

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/budget-cli/internal/workbook"
)

// ErrNilWorkbook is returned when Analyze is called without a workbook.
var ErrNilWorkbook = eris.New("budget: nil workbook")

// RawSheet is the unprocessed grid below a sheet's header row.
type RawSheet struct {
	Headers   []string          `json:"headers" yaml:"headers"`
	Rows      [][]workbook.Cell `json:"rows" yaml:"rows"`
	TotalRows int               `json:"total_rows" yaml:"total_rows"`
}

// Result is the output of one analysis run.
type Result struct {
	ImportID          string                     `json:"import_id,omitempty" yaml:"import_id,omitempty"`
	Sheets            []string                   `json:"sheets" yaml:"sheets"`
	WBSStructure      []*WBSNode                 `json:"wbs_structure" yaml:"wbs_structure"`
	LineItems         map[string][]LineItem      `json:"line_items" yaml:"line_items"`
	Totals            Totals                     `json:"totals" yaml:"totals"`
	DetectedHeaders   map[string]*DetectedHeader `json:"detected_headers" yaml:"detected_headers"`
	RawData           map[string]RawSheet        `json:"raw_data" yaml:"raw_data"`
	ColumnMappings    map[string]ColumnMapping   `json:"column_mappings" yaml:"column_mappings"`
	Allocations       []Allocation               `json:"allocations" yaml:"allocations"`
	TransformationLog []LogEntry                 `json:"transformation_log" yaml:"transformation_log"`
	Validation        Validation                 `json:"validation" yaml:"validation"`
}

// AllLineItems returns every line item in workbook sheet order. Sheets
// missing from Sheets follow in name order.
func (r *Result) AllLineItems() []LineItem {
	var out []LineItem
	seen := map[string]bool{}
	for _, name := range r.Sheets {
		out = append(out, r.LineItems[name]...)
		seen[name] = true
	}
	var rest []string
	for name := range r.LineItems {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, r.LineItems[name]...)
	}
	return out
}

// PersistFunc stores a finished result. It is supplied by the caller; the
// analyzer performs no I/O of its own.
type PersistFunc func(ctx context.Context, res *Result) error

// Options configures an Analyzer.
type Options struct {
	Header HeaderOptions
	Layout BlockLayout
	// CustomMappings overrides detected columns per sheet, role by role.
	CustomMappings map[string]ColumnMapping
	// BlockSheets names the discipline-block sheets. Empty means detect
	// them from their content.
	BlockSheets []string
	InputSheet  string
	// Mapper groups disciplines for the WBS. Nil reads InputSheet.
	Mapper      DisciplineMapper
	Parallelism int
	Now         func() time.Time
}

// Analyzer runs the ingestion stages over a workbook. It holds no state
// between runs and is safe for concurrent use.
type Analyzer struct {
	opts   Options
	logger *zap.Logger
}

// NewAnalyzer returns an Analyzer. A nil logger discards log output.
func NewAnalyzer(opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Layout.BlockSize <= 0 {
		opts.Layout = DefaultBlockLayout()
	}
	if opts.InputSheet == "" {
		opts.InputSheet = DefaultInputSheet
	}
	if opts.Mapper == nil {
		opts.Mapper = NewInputSheetMapper(opts.InputSheet)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Analyzer{opts: opts, logger: logger}
}

// AnalyzeAndPersist analyzes wb and hands the result to persist. The
// result is returned even when persisting fails.
func (a *Analyzer) AnalyzeAndPersist(ctx context.Context, wb *workbook.Workbook, persist PersistFunc) (*Result, error) {
	if persist == nil {
		return nil, eris.New("budget: nil persist func")
	}
	res, err := a.Analyze(wb)
	if err != nil {
		return nil, err
	}
	if err := persist(ctx, res); err != nil {
		return res, eris.Wrap(err, "budget: persist result")
	}
	return res, nil
}

// Analyze runs every stage over wb without side effects.
func (a *Analyzer) Analyze(wb *workbook.Workbook) (*Result, error) {
	if wb == nil {
		return nil, ErrNilWorkbook
	}

	log := NewTransformLog(a.opts.Now)
	res := &Result{
		Sheets:          wb.SheetNames(),
		WBSStructure:    []*WBSNode{},
		LineItems:       map[string][]LineItem{},
		DetectedHeaders: map[string]*DetectedHeader{},
		RawData:         map[string]RawSheet{},
		ColumnMappings:  map[string]ColumnMapping{},
		Allocations:     []Allocation{},
		Totals:          Totals{ByCategory: map[string]decimal.Decimal{}},
	}

	names := wb.SheetNames()
	if len(names) == 0 {
		res.Validation = Validate(wb, nil, nil)
		log.Add(StepValidate, ErrNoSheets, nil)
		res.TransformationLog = log.Entries()
		a.logger.Warn("budget: workbook has no sheets")
		return res, nil
	}

	outcomes := a.processSheets(wb, names)
	for _, o := range outcomes {
		log.Append(o.log)
		if o.Empty {
			continue
		}
		if o.Header != nil {
			res.DetectedHeaders[o.Name] = o.Header
		}
		res.ColumnMappings[o.Name] = o.Mapping
		res.RawData[o.Name] = o.Raw
		res.Allocations = append(res.Allocations, o.Allocations...)
		if len(o.TabularItems) > 0 {
			res.LineItems[o.Name] = append(res.LineItems[o.Name], o.TabularItems...)
		}
	}

	tree, wbsWarnings := a.buildWBS(wb, outcomes, log)
	for _, al := range res.Allocations {
		code, _ := tree.CodeFor(al.Discipline)
		items := MaterializeAllocation(al, code)
		if len(items) > 0 {
			res.LineItems[al.Sheet] = append(res.LineItems[al.Sheet], items...)
		}
		if code != "" {
			if err := tree.Attach(code, WBSTotals{
				Budget:   al.Total(),
				Manhours: al.TotalManhours(),
				Material: al.Allocated.Materials,
			}); err != nil {
				wbsWarnings = append(wbsWarnings, err.Error())
			}
		}
		log.Add(StepMaterialize, fmt.Sprintf("discipline %q: %d line items under WBS %s", al.Discipline, len(items), code), nil)
	}
	res.WBSStructure = append(res.WBSStructure, tree.Roots()...)
	res.Totals = SumLineItems(res.LineItems)

	res.Validation = Validate(wb, outcomes, wbsWarnings)
	log.Add(StepValidate, fmt.Sprintf("%d errors, %d warnings", len(res.Validation.Errors), len(res.Validation.Warnings)), nil)
	res.TransformationLog = log.Entries()

	a.logger.Info("budget: analysis complete",
		zap.Int("sheets", len(names)),
		zap.Int("disciplines", len(res.Allocations)),
		zap.Stringer("grand_total", res.Totals.GrandTotal),
		zap.Int("errors", len(res.Validation.Errors)),
		zap.Int("warnings", len(res.Validation.Warnings)),
	)
	return res, nil
}

// processSheets runs header detection through allocation for each sheet.
// Sheets are independent, so they run concurrently; outcomes keep workbook
// order.
func (a *Analyzer) processSheets(wb *workbook.Workbook, names []string) []SheetOutcome {
	outcomes := make([]SheetOutcome, len(names))
	var g errgroup.Group
	g.SetLimit(a.opts.Parallelism)
	for i, name := range names {
		sheet, _ := wb.Sheet(name)
		g.Go(func() error {
			outcomes[i] = a.processSheet(sheet)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (a *Analyzer) processSheet(sheet *workbook.Sheet) SheetOutcome {
	name := sheet.Name()
	log := NewTransformLog(a.opts.Now)
	o := SheetOutcome{Name: name, log: log}

	if sheet.IsEmpty() {
		o.Empty = true
		log.Add(StepDetectHeader, fmt.Sprintf("sheet %q is empty", name), nil)
		return o
	}
	o.IsInput = strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(a.opts.InputSheet))

	o.Header = DetectHeader(sheet, a.opts.Header)
	headerRow := -1
	if o.Header != nil {
		headerRow = o.Header.HeaderRowIndex
		log.Add(StepDetectHeader, fmt.Sprintf("sheet %q: header at row %d with %d roles", name, headerRow+1, len(o.Header.Columns)), o.Header)
	} else {
		log.Add(StepDetectHeader, fmt.Sprintf("sheet %q: no header detected", name), nil)
	}

	custom, hasCustom := a.opts.CustomMappings[name]
	o.HasCustomMapping = hasCustom && len(custom) > 0
	o.Mapping, o.MappingIssues = resolveSheetMapping(name, o.Header, custom, sheet.ColumnCount())
	log.Add(StepMapColumns, fmt.Sprintf("sheet %q: %d mapped columns", name, len(o.Mapping)), map[string]any{
		"mapping": o.Mapping,
		"issues":  o.MappingIssues,
	})
	o.Raw = rawSheet(sheet, headerRow)

	if o.IsInput {
		return o
	}

	layout := a.opts.Layout.withMapping(o.Mapping)
	o.IsBlockSheet = a.isBlockSheet(sheet, layout, headerRow)
	if !o.IsBlockSheet {
		o.TabularItems, o.Warnings = ExtractTabularItems(sheet, o.Mapping, headerRow, log)
		return o
	}

	o.Blocks, o.Warnings = ExtractBlocks(sheet, layout, headerRow, log)
	for _, b := range o.Blocks {
		o.Allocations = append(o.Allocations, Allocate(b, log))
	}
	a.logger.Debug("budget: sheet processed",
		zap.String("sheet", name),
		zap.Int("blocks", len(o.Blocks)),
		zap.Int("warnings", len(o.Warnings)),
	)
	return o
}

func (a *Analyzer) isBlockSheet(sheet *workbook.Sheet, layout BlockLayout, headerRow int) bool {
	if len(a.opts.BlockSheets) > 0 {
		for _, n := range a.opts.BlockSheets {
			if strings.EqualFold(strings.TrimSpace(n), strings.TrimSpace(sheet.Name())) {
				return true
			}
		}
		return false
	}
	return LooksLikeBlockSheet(sheet, layout, headerRow+1)
}

// buildWBS groups the extracted disciplines and assigns WBS codes. It must
// run after every sheet is processed since codes follow encounter order
// across the whole workbook.
func (a *Analyzer) buildWBS(wb *workbook.Workbook, outcomes []SheetOutcome, log *TransformLog) (*WBSTree, []string) {
	var (
		found    []string
		seen     = map[string]bool{}
		warnings []string
	)
	for _, o := range outcomes {
		for _, al := range o.Allocations {
			key := disciplineKey(al.Discipline)
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, al.Discipline)
		}
	}

	groups, ok := a.opts.Mapper.Groups(wb)
	if ok {
		var missing []string
		groups, missing = reconcileGroups(groups, found)
		for _, d := range missing {
			warnings = append(warnings, fmt.Sprintf("discipline %q is not listed on the %s sheet; added as its own WBS group", d, a.opts.InputSheet))
		}
		log.Add(StepBuildWBS, fmt.Sprintf("%d discipline groups from %s sheet", len(groups), a.opts.InputSheet), groups)
	} else {
		groups = GroupsFromDisciplines(found)
		log.Add(StepBuildWBS, fmt.Sprintf("%d discipline groups from extracted blocks", len(groups)), nil)
	}
	return BuildWBS(groups), warnings
}

func rawSheet(sheet *workbook.Sheet, headerRow int) RawSheet {
	raw := RawSheet{Headers: []string{}, Rows: [][]workbook.Cell{}}
	if headerRow >= 0 {
		raw.Headers = sheet.RowText(headerRow)
	}
	for row := headerRow + 1; row <= sheet.LastPopulatedRow(); row++ {
		raw.Rows = append(raw.Rows, sheet.Row(row))
	}
	raw.TotalRows = len(raw.Rows)
	return raw
}
