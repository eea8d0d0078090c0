package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/dealflow/internal/app"
	"github.com/neomorfeo/dealflow/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"
const dateFormat = "2006-01-02"

// DealResponse is the API representation of a deal.
type DealResponse struct {
	ID                string   `json:"id" doc:"Unique identifier"`
	Title             string   `json:"title" doc:"Deal title"`
	Value             float64  `json:"value" doc:"Monetary value"`
	Currency          string   `json:"currency,omitempty" doc:"Currency code"`
	Probability       int      `json:"probability,omitempty" doc:"Win probability (0-100)"`
	StageID           string   `json:"stageId" doc:"Current funnel stage"`
	Status            string   `json:"status" doc:"Lifecycle state"`
	AssignedTo        string   `json:"assignedTo" doc:"Responsible ID"`
	ContactID         string   `json:"contactId,omitempty" doc:"Linked contact"`
	CompanyID         string   `json:"companyId,omitempty" doc:"Linked company"`
	ServiceIDs        []string `json:"serviceIds,omitempty" doc:"Linked services"`
	ExpectedCloseDate string   `json:"expectedCloseDate,omitempty" doc:"Forecast close date (ISO 8601)"`
	ClosedAt          string   `json:"closedAt,omitempty" doc:"Close timestamp, set only on won/lost deals"`
	CloseReason       string   `json:"closeReason,omitempty" doc:"Free-form close note"`
	CreatedAt         string   `json:"createdAt" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt         string   `json:"updatedAt" doc:"Last update timestamp (ISO 8601)"`
}

func toDealResponse(d domain.Deal) DealResponse {
	resp := DealResponse{
		ID:          d.ID,
		Title:       d.Title,
		Value:       d.Value,
		Currency:    d.Currency,
		Probability: d.Probability,
		StageID:     d.StageID,
		Status:      string(d.Status),
		AssignedTo:  d.AssignedTo,
		ContactID:   d.ContactID,
		CompanyID:   d.CompanyID,
		ServiceIDs:  d.ServiceIDs,
		CloseReason: d.CloseReason,
		CreatedAt:   d.CreatedAt.Format(timeFormat),
		UpdatedAt:   d.UpdatedAt.Format(timeFormat),
	}
	if d.ExpectedCloseDate != nil {
		resp.ExpectedCloseDate = d.ExpectedCloseDate.Format(timeFormat)
	}
	if d.ClosedAt != nil {
		resp.ClosedAt = d.ClosedAt.Format(timeFormat)
	}
	return resp
}

func toDealResponses(deals []domain.Deal) []DealResponse {
	resp := make([]DealResponse, len(deals))
	for i, d := range deals {
		resp[i] = toDealResponse(d)
	}
	return resp
}

// --- Create Deal ---

type CreateDealInput struct {
	Body struct {
		Title             string   `json:"title" minLength:"1" maxLength:"255" doc:"Deal title"`
		Value             float64  `json:"value,omitempty" minimum:"0" doc:"Monetary value"`
		Currency          string   `json:"currency,omitempty" maxLength:"8" doc:"Currency code"`
		Probability       int      `json:"probability,omitempty" minimum:"0" maximum:"100" doc:"Win probability"`
		StageID           string   `json:"stageId,omitempty" doc:"Initial stage (defaults to the first funnel stage)"`
		AssignedTo        string   `json:"assignedTo" minLength:"1" doc:"Responsible ID"`
		ContactID         string   `json:"contactId,omitempty" doc:"Linked contact"`
		CompanyID         string   `json:"companyId,omitempty" doc:"Linked company"`
		ServiceIDs        []string `json:"serviceIds,omitempty" doc:"Linked services"`
		ExpectedCloseDate string   `json:"expectedCloseDate,omitempty" doc:"Forecast close date (YYYY-MM-DD)"`
	}
}

type CreateDealOutput struct {
	Body DealResponse
}

// --- Get Deal ---

type GetDealInput struct {
	ID string `path:"id" doc:"Deal ID"`
}

type GetDealOutput struct {
	Body DealResponse
}

// --- List Deals ---

type ListDealsInput struct {
	Search      string  `query:"search" required:"false" doc:"Case-insensitive match on title, contact and company names"`
	Status      string  `query:"status" required:"false" doc:"Comma-separated statuses; defaults to active, 'any' lifts the filter"`
	Stage       string  `query:"stage" required:"false" doc:"Comma-separated stage IDs"`
	ContactID   string  `query:"contactId" required:"false" doc:"Filter by contact"`
	CompanyID   string  `query:"companyId" required:"false" doc:"Filter by company"`
	MinValue    float64 `query:"minValue" required:"false" doc:"Minimum deal value (inclusive)"`
	MaxValue    float64 `query:"maxValue" required:"false" doc:"Maximum deal value (inclusive)"`
	CreatedFrom string  `query:"createdFrom" required:"false" doc:"Created on or after this day (YYYY-MM-DD)"`
	CreatedTo   string  `query:"createdTo" required:"false" doc:"Created on or before this day (YYYY-MM-DD)"`
	Sort        string  `query:"sort" required:"false" enum:"value,created_at,title,probability,expected_close_date" doc:"Sort key"`
	Order       string  `query:"order" required:"false" default:"asc" enum:"asc,desc" doc:"Sort direction"`
}

type ListDealsOutput struct {
	Body []DealResponse
}

// --- Update Deal ---

type UpdateDealInput struct {
	ID   string `path:"id" doc:"Deal ID"`
	Body struct {
		Title             *string   `json:"title,omitempty" doc:"Deal title"`
		Value             *float64  `json:"value,omitempty" doc:"Monetary value"`
		Currency          *string   `json:"currency,omitempty" doc:"Currency code"`
		Probability       *int      `json:"probability,omitempty" minimum:"0" maximum:"100" doc:"Win probability"`
		AssignedTo        *string   `json:"assignedTo,omitempty" doc:"Responsible ID"`
		ContactID         *string   `json:"contactId,omitempty" doc:"Linked contact"`
		CompanyID         *string   `json:"companyId,omitempty" doc:"Linked company"`
		ServiceIDs        *[]string `json:"serviceIds,omitempty" doc:"Linked services"`
		ExpectedCloseDate *string   `json:"expectedCloseDate,omitempty" doc:"Forecast close date (YYYY-MM-DD)"`
	}
}

type UpdateDealOutput struct {
	Body DealResponse
}

// --- Delete Deal ---

type DeleteDealInput struct {
	ID string `path:"id" doc:"Deal ID"`
}

// --- Commands ---

type CommandInput struct {
	ID   string `path:"id" doc:"Deal ID"`
	Body struct {
		Command     string `json:"command" doc:"Lifecycle action" enum:"change_stage,close,reopen,pause,resume"`
		StageID     string `json:"stageId,omitempty" doc:"Target stage for change_stage"`
		Outcome     string `json:"outcome,omitempty" doc:"Close outcome" enum:"won,lost"`
		CloseReason string `json:"closeReason,omitempty" doc:"Free-form close note"`
	}
}

type CommandOutput struct {
	Body DealResponse
}

// --- Bulk operations ---

// BulkResultResponse lists the ids that went through and maps the rest to
// their failure messages.
type BulkResultResponse struct {
	Done   []string          `json:"done" doc:"IDs processed successfully"`
	Failed map[string]string `json:"failed,omitempty" doc:"Per-ID failure messages"`
}

func toBulkResultResponse(r app.BulkResult) BulkResultResponse {
	resp := BulkResultResponse{Done: r.Done}
	if len(r.Failed) > 0 {
		resp.Failed = make(map[string]string, len(r.Failed))
		for id, err := range r.Failed {
			resp.Failed[id] = err.Error()
		}
	}
	return resp
}

type BulkCloseInput struct {
	Body struct {
		IDs         []string `json:"ids" minItems:"1" doc:"Deals to close"`
		Outcome     string   `json:"outcome" doc:"Close outcome" enum:"won,lost"`
		CloseReason string   `json:"closeReason,omitempty" doc:"Free-form close note"`
	}
}

type BulkDeleteInput struct {
	Body struct {
		IDs []string `json:"ids" minItems:"1" doc:"Deals to delete"`
	}
}

type BulkOutput struct {
	Body BulkResultResponse
}

// --- Funnel / responsibles ---

type StageResponse struct {
	ID             string   `json:"id" doc:"Stage ID"`
	Name           string   `json:"name" doc:"Display name"`
	Order          int      `json:"order" doc:"Position in the funnel"`
	WonStage       bool     `json:"wonStage,omitempty" doc:"Deals moved here close as won"`
	LostStage      bool     `json:"lostStage,omitempty" doc:"Deals moved here close as lost"`
	RequiredFields []string `json:"requiredFields,omitempty" doc:"Fields a deal must carry to enter"`
}

type FunnelResponse struct {
	ID     string          `json:"id" doc:"Funnel ID"`
	Name   string          `json:"name" doc:"Display name"`
	Active bool            `json:"active" doc:"Whether this is the funnel in use"`
	Stages []StageResponse `json:"stages" doc:"Stages in funnel order"`
}

func toFunnelResponse(f domain.Funnel) FunnelResponse {
	resp := FunnelResponse{ID: f.ID, Name: f.Name, Active: f.Active}
	for _, s := range f.OrderedStages() {
		resp.Stages = append(resp.Stages, StageResponse{
			ID:             s.ID,
			Name:           s.Name,
			Order:          s.Order,
			WonStage:       s.WonStage,
			LostStage:      s.LostStage,
			RequiredFields: s.RequiredFields,
		})
	}
	return resp
}

type GetFunnelOutput struct {
	Body FunnelResponse
}

type ResponsibleResponse struct {
	ID     string `json:"id" doc:"Responsible ID"`
	Name   string `json:"name" doc:"Display name"`
	Active bool   `json:"active" doc:"Whether deals may be assigned"`
}

type ListResponsiblesOutput struct {
	Body []ResponsibleResponse
}

// --- Reports ---

type ReportRangeInput struct {
	From string `query:"from" required:"false" doc:"Deals created on or after this day (YYYY-MM-DD)"`
	To   string `query:"to" required:"false" doc:"Deals created on or before this day (YYYY-MM-DD)"`
}

type PipelineReportOutput struct {
	Body PipelineReportResponse
}

type StageDistributionResponse struct {
	StageID        string  `json:"stageId"`
	StageName      string  `json:"stageName"`
	Count          int     `json:"count"`
	Value          float64 `json:"value"`
	Percentage     float64 `json:"percentage"`
	AvgDaysInStage float64 `json:"avgDaysInStage"`
}

type PipelineReportResponse struct {
	TotalDeals         int                         `json:"totalDeals"`
	TotalValue         float64                     `json:"totalValue"`
	AverageDealValue   float64                     `json:"averageDealValue"`
	AverageDaysToClose *float64                    `json:"averageDaysToClose,omitempty"`
	Stages             []StageDistributionResponse `json:"stages"`
}

type ConversionReportOutput struct {
	Body ConversionReportResponse
}

type StageConversionResponse struct {
	StageID   string  `json:"stageId"`
	StageName string  `json:"stageName"`
	Won       int     `json:"won"`
	Lost      int     `json:"lost"`
	Rate      float64 `json:"rate"`
}

type PeriodConversionResponse struct {
	Period string  `json:"period"`
	Won    int     `json:"won"`
	Lost   int     `json:"lost"`
	Rate   float64 `json:"rate"`
}

type ConversionReportResponse struct {
	Won         int                        `json:"won"`
	Lost        int                        `json:"lost"`
	OverallRate float64                    `json:"overallRate"`
	ByStage     []StageConversionResponse  `json:"byStage"`
	ByPeriod    []PeriodConversionResponse `json:"byPeriod"`
}

type SalesReportInput struct {
	From       string `query:"from" required:"false" doc:"Deals created on or after this day (YYYY-MM-DD)"`
	To         string `query:"to" required:"false" doc:"Deals created on or before this day (YYYY-MM-DD)"`
	Stage      string `query:"stage" required:"false" doc:"Restrict to one stage"`
	Status     string `query:"status" required:"false" enum:"active,paused,won,lost" doc:"Restrict to one status"`
	AssignedTo string `query:"assignedTo" required:"false" doc:"Restrict to one responsible"`
}

type SalesReportOutput struct {
	Body SalesReportResponse
}

type StatusTotalsResponse struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type StageTotalsResponse struct {
	StageID   string  `json:"stageId"`
	StageName string  `json:"stageName"`
	Count     int     `json:"count"`
	Value     float64 `json:"value"`
}

type ResponsibleTotalsResponse struct {
	ResponsibleID string  `json:"responsibleId"`
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	Value         float64 `json:"value"`
}

type SalesReportResponse struct {
	TotalDeals    int                         `json:"totalDeals"`
	TotalValue    float64                     `json:"totalValue"`
	Active        StatusTotalsResponse        `json:"active"`
	Paused        StatusTotalsResponse        `json:"paused"`
	Won           StatusTotalsResponse        `json:"won"`
	Lost          StatusTotalsResponse        `json:"lost"`
	ByStage       []StageTotalsResponse       `json:"byStage"`
	ByResponsible []ResponsibleTotalsResponse `json:"byResponsible"`
}

// Register adds all pipeline API routes to the Huma API.
func Register(api huma.API, svc *app.PipelineService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-deal",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals",
		Summary:     "Create a new deal",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *CreateDealInput) (*CreateDealOutput, error) {
		expected, err := parseDate(input.Body.ExpectedCloseDate, "expectedCloseDate")
		if err != nil {
			return nil, err
		}

		deal, err := svc.Create(ctx, domain.DealDraft{
			Title:             input.Body.Title,
			Value:             input.Body.Value,
			Currency:          input.Body.Currency,
			Probability:       input.Body.Probability,
			StageID:           input.Body.StageID,
			AssignedTo:        input.Body.AssignedTo,
			ContactID:         input.Body.ContactID,
			CompanyID:         input.Body.CompanyID,
			ServiceIDs:        input.Body.ServiceIDs,
			ExpectedCloseDate: expected,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateDealOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deal",
		Method:      http.MethodGet,
		Path:        "/api/v1/deals/{id}",
		Summary:     "Get a deal by ID",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *GetDealInput) (*GetDealOutput, error) {
		deal, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetDealOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deals",
		Method:      http.MethodGet,
		Path:        "/api/v1/deals",
		Summary:     "List deals with filters and sorting",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *ListDealsInput) (*ListDealsOutput, error) {
		filter, err := toFilterSpec(input)
		if err != nil {
			return nil, err
		}

		deals, err := svc.ListDeals(ctx, filter, domain.SortKey(input.Sort), domain.SortOrder(input.Order))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListDealsOutput{Body: toDealResponses(deals)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-deal",
		Method:      http.MethodPatch,
		Path:        "/api/v1/deals/{id}",
		Summary:     "Update deal fields",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *UpdateDealInput) (*UpdateDealOutput, error) {
		patch := domain.FieldPatch{
			Title:       input.Body.Title,
			Value:       input.Body.Value,
			Currency:    input.Body.Currency,
			Probability: input.Body.Probability,
			AssignedTo:  input.Body.AssignedTo,
			ContactID:   input.Body.ContactID,
			CompanyID:   input.Body.CompanyID,
			ServiceIDs:  input.Body.ServiceIDs,
		}
		if input.Body.ExpectedCloseDate != nil {
			expected, err := parseDate(*input.Body.ExpectedCloseDate, "expectedCloseDate")
			if err != nil {
				return nil, err
			}
			patch.ExpectedCloseDate = expected
		}

		deal, err := svc.UpdateFields(ctx, input.ID, patch)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &UpdateDealOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-deal",
		Method:        http.MethodDelete,
		Path:          "/api/v1/deals/{id}",
		Summary:       "Delete a deal",
		Tags:          []string{"Deals"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteDealInput) (*struct{}, error) {
		if err := svc.Delete(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-deal-command",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals/{id}/commands",
		Summary:     "Apply a lifecycle command to a deal",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *CommandInput) (*CommandOutput, error) {
		deal, err := svc.Apply(ctx, input.ID, app.Command{
			Kind:        app.CommandKind(input.Body.Command),
			StageID:     input.Body.StageID,
			Outcome:     domain.Status(input.Body.Outcome),
			CloseReason: input.Body.CloseReason,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CommandOutput{Body: toDealResponse(deal)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bulk-close-deals",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals/bulk/close",
		Summary:     "Close several deals at once",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *BulkCloseInput) (*BulkOutput, error) {
		result := svc.CloseMany(ctx, input.Body.IDs, domain.Status(input.Body.Outcome), input.Body.CloseReason)
		return &BulkOutput{Body: toBulkResultResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bulk-delete-deals",
		Method:      http.MethodPost,
		Path:        "/api/v1/deals/bulk/delete",
		Summary:     "Delete several deals at once",
		Tags:        []string{"Deals"},
	}, func(ctx context.Context, input *BulkDeleteInput) (*BulkOutput, error) {
		result := svc.DeleteMany(ctx, input.Body.IDs)
		return &BulkOutput{Body: toBulkResultResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-active-funnel",
		Method:      http.MethodGet,
		Path:        "/api/v1/funnels/active",
		Summary:     "Get the active funnel with its stages",
		Tags:        []string{"Funnels"},
	}, func(ctx context.Context, _ *struct{}) (*GetFunnelOutput, error) {
		funnel, err := svc.ActiveFunnel(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetFunnelOutput{Body: toFunnelResponse(funnel)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-responsibles",
		Method:      http.MethodGet,
		Path:        "/api/v1/responsibles",
		Summary:     "List responsibles",
		Tags:        []string{"Responsibles"},
	}, func(ctx context.Context, _ *struct{}) (*ListResponsiblesOutput, error) {
		responsibles, err := svc.Responsibles(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]ResponsibleResponse, len(responsibles))
		for i, r := range responsibles {
			resp[i] = ResponsibleResponse{ID: r.ID, Name: r.Name, Active: r.Active}
		}
		return &ListResponsiblesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pipeline-report",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/pipeline",
		Summary:     "Stage distribution of the pipeline",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *ReportRangeInput) (*PipelineReportOutput, error) {
		filter, err := toReportFilter(input.From, input.To)
		if err != nil {
			return nil, err
		}

		report, err := svc.PipelineReport(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := PipelineReportResponse{
			TotalDeals:         report.TotalDeals,
			TotalValue:         report.TotalValue,
			AverageDealValue:   report.AverageDealValue,
			AverageDaysToClose: report.AverageDaysToClose,
		}
		for _, s := range report.Stages {
			resp.Stages = append(resp.Stages, StageDistributionResponse{
				StageID:        s.StageID,
				StageName:      s.StageName,
				Count:          s.Count,
				Value:          s.Value,
				Percentage:     s.Percentage,
				AvgDaysInStage: s.AvgDaysInStage,
			})
		}
		return &PipelineReportOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "conversion-report",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/conversion",
		Summary:     "Won/lost conversion rates",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *ReportRangeInput) (*ConversionReportOutput, error) {
		filter, err := toReportFilter(input.From, input.To)
		if err != nil {
			return nil, err
		}

		report, err := svc.ConversionReport(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := ConversionReportResponse{
			Won:         report.Won,
			Lost:        report.Lost,
			OverallRate: report.OverallRate,
		}
		for _, s := range report.ByStage {
			resp.ByStage = append(resp.ByStage, StageConversionResponse{
				StageID:   s.StageID,
				StageName: s.StageName,
				Won:       s.Won,
				Lost:      s.Lost,
				Rate:      s.Rate,
			})
		}
		for _, p := range report.ByPeriod {
			resp.ByPeriod = append(resp.ByPeriod, PeriodConversionResponse{
				Period: p.Period,
				Won:    p.Won,
				Lost:   p.Lost,
				Rate:   p.Rate,
			})
		}
		return &ConversionReportOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sales-report",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/sales",
		Summary:     "Totals by status, stage and responsible",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *SalesReportInput) (*SalesReportOutput, error) {
		from, err := parseDate(input.From, "from")
		if err != nil {
			return nil, err
		}
		to, err := parseDate(input.To, "to")
		if err != nil {
			return nil, err
		}

		report, err := svc.SalesReport(ctx, app.SalesFilter{
			From:       from,
			To:         to,
			StageID:    input.Stage,
			Status:     domain.Status(input.Status),
			AssignedTo: input.AssignedTo,
		})
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := SalesReportResponse{
			TotalDeals: report.TotalDeals,
			TotalValue: report.TotalValue,
			Active:     StatusTotalsResponse(report.Active),
			Paused:     StatusTotalsResponse(report.Paused),
			Won:        StatusTotalsResponse(report.Won),
			Lost:       StatusTotalsResponse(report.Lost),
		}
		for _, s := range report.ByStage {
			resp.ByStage = append(resp.ByStage, StageTotalsResponse(s))
		}
		for _, r := range report.ByResponsible {
			resp.ByResponsible = append(resp.ByResponsible, ResponsibleTotalsResponse(r))
		}
		return &SalesReportOutput{Body: resp}, nil
	})
}

// toFilterSpec maps list query params onto the domain filter. With no
// status param the list shows the working view (active deals only);
// status=any lifts the constraint.
func toFilterSpec(input *ListDealsInput) (domain.FilterSpec, error) {
	filter := domain.FilterSpec{
		Search:    input.Search,
		ContactID: input.ContactID,
		CompanyID: input.CompanyID,
	}

	switch input.Status {
	case "":
		filter.Statuses = []domain.Status{domain.StatusActive}
	case "any":
		// No status constraint.
	default:
		for _, s := range strings.Split(input.Status, ",") {
			filter.Statuses = append(filter.Statuses, domain.Status(strings.TrimSpace(s)))
		}
	}

	if input.Stage != "" {
		for _, id := range strings.Split(input.Stage, ",") {
			filter.StageIDs = append(filter.StageIDs, strings.TrimSpace(id))
		}
	}

	if input.MinValue > 0 {
		filter.MinValue = &input.MinValue
	}
	if input.MaxValue > 0 {
		filter.MaxValue = &input.MaxValue
	}

	var err error
	if filter.CreatedFrom, err = parseDate(input.CreatedFrom, "createdFrom"); err != nil {
		return domain.FilterSpec{}, err
	}
	if filter.CreatedTo, err = parseDate(input.CreatedTo, "createdTo"); err != nil {
		return domain.FilterSpec{}, err
	}

	return filter, nil
}

func toReportFilter(from, to string) (app.ReportFilter, error) {
	parsedFrom, err := parseDate(from, "from")
	if err != nil {
		return app.ReportFilter{}, err
	}
	parsedTo, err := parseDate(to, "to")
	if err != nil {
		return app.ReportFilter{}, err
	}
	return app.ReportFilter{From: parsedFrom, To: parsedTo}, nil
}

func parseDate(s, param string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid date for " + param + ", expected YYYY-MM-DD")
	}
	return &t, nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrDealNotFound) {
		return huma.Error404NotFound("deal not found")
	}
	if errors.Is(err, domain.ErrFunnelNotFound) {
		return huma.Error404NotFound("funnel not found")
	}
	if errors.Is(err, domain.ErrNoActiveFunnel) || errors.Is(err, domain.ErrNoActiveResponsible) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var respErr *domain.MissingResponsibleError
	if errors.As(err, &respErr) {
		return huma.Error422UnprocessableEntity(respErr.Error())
	}

	var stageErr *domain.UnknownStageError
	if errors.As(err, &stageErr) {
		return huma.Error422UnprocessableEntity(stageErr.Error())
	}

	var reqErr *domain.StageRequirementError
	if errors.As(err, &reqErr) {
		return huma.Error422UnprocessableEntity(reqErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error409Conflict(trErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
