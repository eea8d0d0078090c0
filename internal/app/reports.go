package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// ReportFilter restricts a report to deals created within the given date
// range. Nil bounds are unconstrained.
type ReportFilter struct {
	From *time.Time
	To   *time.Time
}

func (f ReportFilter) spec() domain.FilterSpec {
	return domain.FilterSpec{CreatedFrom: f.From, CreatedTo: f.To}
}

// StageDistribution is one stage bucket of the pipeline report.
type StageDistribution struct {
	StageID   string
	StageName string
	Count     int
	Value     float64
	// Percentage is this bucket's share of the total pipeline value.
	Percentage float64
	// AvgDaysInStage approximates time in stage from the last update,
	// since stage entries are not logged separately.
	AvgDaysInStage float64
}

// PipelineReport describes how deals distribute over the funnel stages.
type PipelineReport struct {
	TotalDeals       int
	TotalValue       float64
	AverageDealValue float64
	// AverageDaysToClose is nil when the set holds no closed deals.
	AverageDaysToClose *float64
	Stages             []StageDistribution
}

// StageConversion is the won/lost split of closed deals on one stage.
type StageConversion struct {
	StageID   string
	StageName string
	Won       int
	Lost      int
	Rate      float64
}

// PeriodConversion is the won/lost split of deals created in one month.
type PeriodConversion struct {
	Period string // YYYY-MM
	Won    int
	Lost   int
	Rate   float64
}

// ConversionReport summarizes closing outcomes over the closed deal set.
type ConversionReport struct {
	Won         int
	Lost        int
	OverallRate float64
	ByStage     []StageConversion
	ByPeriod    []PeriodConversion
}

// SalesFilter restricts the sales report. Empty fields are unconstrained.
type SalesFilter struct {
	From       *time.Time
	To         *time.Time
	StageID    string
	Status     domain.Status
	AssignedTo string
}

// StatusTotals is a count and summed value for one lifecycle status.
type StatusTotals struct {
	Count int
	Value float64
}

// StageTotals is a count and summed value for one stage.
type StageTotals struct {
	StageID   string
	StageName string
	Count     int
	Value     float64
}

// ResponsibleTotals is a count and summed value for one deal owner.
type ResponsibleTotals struct {
	ResponsibleID string
	Name          string
	Count         int
	Value         float64
}

// SalesReport totals the deal set overall, per status, per stage and per
// responsible.
type SalesReport struct {
	TotalDeals    int
	TotalValue    float64
	Active        StatusTotals
	Paused        StatusTotals
	Won           StatusTotals
	Lost          StatusTotals
	ByStage       []StageTotals
	ByResponsible []ResponsibleTotals
}

// BuildPipelineReport groups the deals by their current stage and derives
// value shares and time approximations. All rates guard division by zero
// with 0.
func BuildPipelineReport(deals []domain.Deal, funnel domain.Funnel, filter ReportFilter, now time.Time) PipelineReport {
	deals = domain.FilterDeals(deals, filter.spec(), nil)

	groups := make(map[string]*StageDistribution)
	daysInStage := make(map[string]float64)
	var order []string

	var totalValue float64
	var closedDays float64
	var closedCount int

	for _, d := range deals {
		g, ok := groups[d.StageID]
		if !ok {
			g = &StageDistribution{StageID: d.StageID, StageName: stageName(funnel, d.StageID)}
			groups[d.StageID] = g
			order = append(order, d.StageID)
		}
		g.Count++
		g.Value += d.Value
		daysInStage[d.StageID] += days(d.UpdatedAt, now)

		totalValue += d.Value
		if d.Closed() {
			closedDays += days(d.CreatedAt, d.UpdatedAt)
			closedCount++
		}
	}

	sortStageIDs(order, funnel)

	report := PipelineReport{
		TotalDeals: len(deals),
		TotalValue: totalValue,
		Stages:     make([]StageDistribution, 0, len(order)),
	}
	if len(deals) > 0 {
		report.AverageDealValue = totalValue / float64(len(deals))
	}
	if closedCount > 0 {
		avg := closedDays / float64(closedCount)
		report.AverageDaysToClose = &avg
	}

	for _, id := range order {
		g := groups[id]
		if totalValue > 0 {
			g.Percentage = g.Value / totalValue * 100
		}
		g.AvgDaysInStage = daysInStage[id] / float64(g.Count)
		report.Stages = append(report.Stages, *g)
	}

	return report
}

// BuildConversionReport computes won/lost rates over the closed subset of
// the deals, overall, per stage (funnel order, removed stages last) and
// per creation month (chronological).
func BuildConversionReport(deals []domain.Deal, funnel domain.Funnel, filter ReportFilter) ConversionReport {
	deals = domain.FilterDeals(deals, filter.spec(), nil)

	stageGroups := make(map[string]*StageConversion)
	var stageOrder []string
	periodGroups := make(map[string]*PeriodConversion)
	var periods []string

	var report ConversionReport

	for _, d := range deals {
		if !d.Closed() {
			continue
		}

		sg, ok := stageGroups[d.StageID]
		if !ok {
			sg = &StageConversion{StageID: d.StageID, StageName: stageName(funnel, d.StageID)}
			stageGroups[d.StageID] = sg
			stageOrder = append(stageOrder, d.StageID)
		}

		period := d.CreatedAt.Format("2006-01")
		pg, ok := periodGroups[period]
		if !ok {
			pg = &PeriodConversion{Period: period}
			periodGroups[period] = pg
			periods = append(periods, period)
		}

		if d.Status == domain.StatusWon {
			report.Won++
			sg.Won++
			pg.Won++
		} else {
			report.Lost++
			sg.Lost++
			pg.Lost++
		}
	}

	report.OverallRate = rate(report.Won, report.Lost)

	sortStageIDs(stageOrder, funnel)
	for _, id := range stageOrder {
		sg := stageGroups[id]
		sg.Rate = rate(sg.Won, sg.Lost)
		report.ByStage = append(report.ByStage, *sg)
	}

	sort.Strings(periods)
	for _, p := range periods {
		pg := periodGroups[p]
		pg.Rate = rate(pg.Won, pg.Lost)
		report.ByPeriod = append(report.ByPeriod, *pg)
	}

	return report
}

// BuildSalesReport totals the filtered deals per status, stage and
// responsible. Responsible names not present in the given set fall back
// to the raw id.
func BuildSalesReport(deals []domain.Deal, funnel domain.Funnel, responsibles []domain.Responsible, filter SalesFilter) SalesReport {
	spec := domain.FilterSpec{CreatedFrom: filter.From, CreatedTo: filter.To}
	if filter.StageID != "" {
		spec.StageIDs = []string{filter.StageID}
	}
	if filter.Status != "" {
		spec.Statuses = []domain.Status{filter.Status}
	}

	stageGroups := make(map[string]*StageTotals)
	var stageOrder []string
	ownerGroups := make(map[string]*ResponsibleTotals)
	var ownerOrder []string

	var report SalesReport

	for _, d := range domain.FilterDeals(deals, spec, nil) {
		if filter.AssignedTo != "" && d.AssignedTo != filter.AssignedTo {
			continue
		}

		report.TotalDeals++
		report.TotalValue += d.Value

		switch d.Status {
		case domain.StatusActive:
			report.Active.Count++
			report.Active.Value += d.Value
		case domain.StatusPaused:
			report.Paused.Count++
			report.Paused.Value += d.Value
		case domain.StatusWon:
			report.Won.Count++
			report.Won.Value += d.Value
		case domain.StatusLost:
			report.Lost.Count++
			report.Lost.Value += d.Value
		}

		sg, ok := stageGroups[d.StageID]
		if !ok {
			sg = &StageTotals{StageID: d.StageID, StageName: stageName(funnel, d.StageID)}
			stageGroups[d.StageID] = sg
			stageOrder = append(stageOrder, d.StageID)
		}
		sg.Count++
		sg.Value += d.Value

		og, ok := ownerGroups[d.AssignedTo]
		if !ok {
			og = &ResponsibleTotals{ResponsibleID: d.AssignedTo, Name: responsibleName(responsibles, d.AssignedTo)}
			ownerGroups[d.AssignedTo] = og
			ownerOrder = append(ownerOrder, d.AssignedTo)
		}
		og.Count++
		og.Value += d.Value
	}

	sortStageIDs(stageOrder, funnel)
	for _, id := range stageOrder {
		report.ByStage = append(report.ByStage, *stageGroups[id])
	}

	// Owners ranked by summed value, ties keeping first-seen order.
	sort.SliceStable(ownerOrder, func(i, j int) bool {
		return ownerGroups[ownerOrder[i]].Value > ownerGroups[ownerOrder[j]].Value
	})
	for _, id := range ownerOrder {
		report.ByResponsible = append(report.ByResponsible, *ownerGroups[id])
	}

	return report
}

// PipelineReport builds the stage distribution report over the current
// deal set and active funnel.
func (s *PipelineService) PipelineReport(ctx context.Context, filter ReportFilter) (PipelineReport, error) {
	deals, funnel, err := s.reportInputs(ctx)
	if err != nil {
		return PipelineReport{}, err
	}
	return BuildPipelineReport(deals, funnel, filter, s.now()), nil
}

// ConversionReport builds the won/lost conversion report.
func (s *PipelineService) ConversionReport(ctx context.Context, filter ReportFilter) (ConversionReport, error) {
	deals, funnel, err := s.reportInputs(ctx)
	if err != nil {
		return ConversionReport{}, err
	}
	return BuildConversionReport(deals, funnel, filter), nil
}

// SalesReport builds the sales totals report.
func (s *PipelineService) SalesReport(ctx context.Context, filter SalesFilter) (SalesReport, error) {
	deals, funnel, err := s.reportInputs(ctx)
	if err != nil {
		return SalesReport{}, err
	}
	responsibles, err := s.responsibles.List(ctx)
	if err != nil {
		return SalesReport{}, fmt.Errorf("loading responsibles: %w", err)
	}
	return BuildSalesReport(deals, funnel, responsibles, filter), nil
}

// reportInputs loads the deal snapshot and the active funnel. Reports
// still work without an active funnel; stage names then fall back to ids.
func (s *PipelineService) reportInputs(ctx context.Context) ([]domain.Deal, domain.Funnel, error) {
	deals, err := s.deals.List(ctx)
	if err != nil {
		return nil, domain.Funnel{}, fmt.Errorf("listing deals: %w", err)
	}

	funnel, err := s.funnels.ActiveFunnel(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoActiveFunnel) {
		return nil, domain.Funnel{}, err
	}

	return deals, funnel, nil
}

func rate(won, lost int) float64 {
	total := won + lost
	if total == 0 {
		return 0
	}
	return float64(won) / float64(total) * 100
}

func days(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func stageName(funnel domain.Funnel, stageID string) string {
	if s, ok := funnel.StageByID(stageID); ok {
		return s.Name
	}
	return stageID
}

func responsibleName(responsibles []domain.Responsible, id string) string {
	if r, ok := domain.FindResponsible(responsibles, id); ok {
		return r.Name
	}
	return id
}

// sortStageIDs orders stage ids by the funnel's stage order in place.
// Ids the funnel no longer knows sort last, keeping first-seen order.
func sortStageIDs(ids []string, funnel domain.Funnel) {
	sort.SliceStable(ids, func(i, j int) bool {
		return funnel.StageOrder(ids[i]) < funnel.StageOrder(ids[j])
	})
}
