package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/dealflow/internal/domain"
)

const tracerName = "github.com/neomorfeo/dealflow/internal/adapter/otel"

// TracingDealRepository wraps a domain.DealRepository with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and records
// errors.
type TracingDealRepository struct {
	next   domain.DealRepository
	tracer trace.Tracer
}

// Compile-time check: TracingDealRepository implements domain.DealRepository.
var _ domain.DealRepository = (*TracingDealRepository)(nil)

// NewTracingDealRepository creates a tracing decorator around the given repository.
func NewTracingDealRepository(next domain.DealRepository) *TracingDealRepository {
	return &TracingDealRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingDealRepository) Create(ctx context.Context, deal domain.Deal) error {
	ctx, span := r.tracer.Start(ctx, "DealRepository.Create",
		trace.WithAttributes(
			attribute.String("deal.id", deal.ID),
			attribute.String("deal.stage", deal.StageID),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, deal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingDealRepository) GetByID(ctx context.Context, id string) (domain.Deal, error) {
	ctx, span := r.tracer.Start(ctx, "DealRepository.GetByID",
		trace.WithAttributes(attribute.String("deal.id", id)),
	)
	defer span.End()

	deal, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return deal, err
}

func (r *TracingDealRepository) List(ctx context.Context) ([]domain.Deal, error) {
	ctx, span := r.tracer.Start(ctx, "DealRepository.List")
	defer span.End()

	deals, err := r.next.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(deals)))
	}
	return deals, err
}

func (r *TracingDealRepository) Update(ctx context.Context, deal domain.Deal) error {
	ctx, span := r.tracer.Start(ctx, "DealRepository.Update",
		trace.WithAttributes(
			attribute.String("deal.id", deal.ID),
			attribute.String("deal.stage", deal.StageID),
			attribute.String("deal.status", string(deal.Status)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, deal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingDealRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "DealRepository.Delete",
		trace.WithAttributes(attribute.String("deal.id", id)),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
