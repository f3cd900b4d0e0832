// Package fulfillment moves orders from unfulfilled to fulfilled.
//
// A fulfillment first claims the order with a short-lived token, then talks to
// the carrier (freeship only), and finally commits the status change together
// with the customer notification. The claim and the final compare-and-swap
// both live in the database, so concurrent requests for the same order cannot
// both produce a label and no lock is held while the carrier is called.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront/internal/domain"
)

var tracer = otel.Tracer("fulfillment")

type Store interface {
	GetWithOwner(ctx context.Context, id uuid.UUID) (*domain.OrderWithOwner, error)
	// Claim reserves an unfulfilled order for token until expiresAt. It fails
	// with domain.ErrConflict when the order is fulfilled or claimed by a live
	// token.
	Claim(ctx context.Context, id, token uuid.UUID, now, expiresAt time.Time) error
	Release(ctx context.Context, id, token uuid.UUID) error
	// Complete marks the order fulfilled and records n, atomically, provided
	// token still holds the claim. Otherwise it fails with domain.ErrConflict.
	Complete(ctx context.Context, id, token uuid.UUID, fulfilledAt time.Time, n domain.Notification) error
}

type LabelGenerator interface {
	GenerateLabel(ctx context.Context, req domain.ShippingLabelRequest) (domain.ShippingLabel, error)
}

type Config struct {
	ClaimTTL  time.Duration
	StoreName string
}

type Result struct {
	OrderID     uuid.UUID
	Method      domain.ShippingMethod
	Label       *domain.ShippingLabel
	Message     string
	FulfilledAt time.Time
}

type Orchestrator struct {
	store  Store
	labels LabelGenerator
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	fulfilled metric.Int64Counter
	failures  metric.Int64Counter
}

func NewOrchestrator(store Store, labels LabelGenerator, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if cfg.ClaimTTL <= 0 {
		return nil, errors.New("fulfillment: claim ttl must be positive")
	}

	meter := otel.Meter("fulfillment")
	fulfilled, err := meter.Int64Counter("orders.fulfilled", metric.WithDescription("Orders fulfilled"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("orders.fulfillment_failed", metric.WithDescription("Fulfillment attempts that failed"))
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		store:     store,
		labels:    labels,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		fulfilled: fulfilled,
		failures:  failures,
	}, nil
}

// Fulfill runs the fulfillment workflow for one order. req is required for
// freeship orders and optional for pickup, where only its ship-from company
// name is used.
func (o *Orchestrator) Fulfill(ctx context.Context, orderID uuid.UUID, req *domain.ShippingLabelRequest) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "fulfillment.Fulfill", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
		}
		span.End()
	}()

	order, err := o.store.GetWithOwner(ctx, orderID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.shipping_method", string(order.ShippingMethod)))

	if order.Fulfilled() {
		return nil, fmt.Errorf("%w: order %s is already fulfilled", domain.ErrConflict, orderID)
	}

	if order.ShippingMethod == domain.ShippingMethodFreeship {
		if req == nil {
			return nil, fmt.Errorf("%w: shipping label request is required for freeship orders", domain.ErrInvalidArgument)
		}
		req.ApplyDefaults()
		if err := req.Validate(); err != nil {
			return nil, err
		}
	}

	token := uuid.New()
	now := o.now()
	if err := o.store.Claim(ctx, orderID, token, now, now.Add(o.cfg.ClaimTTL)); err != nil {
		return nil, err
	}

	var label *domain.ShippingLabel
	if order.ShippingMethod == domain.ShippingMethodFreeship {
		generated, err := o.labels.GenerateLabel(ctx, *req)
		if err != nil {
			o.release(ctx, orderID, token)
			if !errors.Is(err, domain.ErrExternalService) {
				err = fmt.Errorf("%w: %w", domain.ErrExternalService, err)
			}
			return nil, fmt.Errorf("generate label for order %s: %w", orderID, err)
		}
		label = &generated
	}

	fulfilledAt := o.now()
	notification := o.composeNotification(order, req, label, fulfilledAt)

	if err := o.store.Complete(ctx, orderID, token, fulfilledAt, notification); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			o.release(ctx, orderID, token)
		}
		if label != nil {
			o.logger.WarnContext(ctx, "label generated for an order that was not committed",
				"order_id", orderID, "tracking_number", label.TrackingNumber, "error", err)
		}
		return nil, fmt.Errorf("commit fulfillment of order %s: %w", orderID, err)
	}

	o.fulfilled.Add(ctx, 1, metric.WithAttributes(attribute.String("shipping_method", string(order.ShippingMethod))))
	o.logger.InfoContext(ctx, "order fulfilled",
		"order_id", orderID, "shipping_method", order.ShippingMethod, "notification_id", notification.ID)

	res = &Result{
		OrderID:     orderID,
		Method:      order.ShippingMethod,
		Label:       label,
		FulfilledAt: fulfilledAt,
	}
	if label == nil {
		res.Message = fmt.Sprintf("Order %s is ready for pickup at %s.", orderID, order.ShippingLocation)
	}
	return res, nil
}

// release frees the claim so the order can be retried right away instead of
// after the claim expires.
func (o *Orchestrator) release(ctx context.Context, orderID, token uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.store.Release(ctx, orderID, token); err != nil {
		o.logger.ErrorContext(ctx, "failed to release fulfillment claim", "order_id", orderID, "error", err)
	}
}

func (o *Orchestrator) composeNotification(order *domain.OrderWithOwner, req *domain.ShippingLabelRequest, label *domain.ShippingLabel, at time.Time) domain.Notification {
	company := o.cfg.StoreName
	if req != nil && req.ShipFrom.CompanyName != "" {
		company = req.ShipFrom.CompanyName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", order.Owner.Name)
	fmt.Fprintf(&b, "We are pleased to inform you that your order #%s has been successfully fulfilled.\n\n", order.ID)
	fmt.Fprintf(&b, "Shipping Method: %s\n", titleCase(string(order.ShippingMethod)))
	if label != nil {
		fmt.Fprintf(&b, "Tracking Number: %s\n", label.TrackingNumber)
	} else {
		fmt.Fprintf(&b, "Pickup Location: %s\n", order.ShippingLocation)
	}
	fmt.Fprintf(&b, "\nThank you for shopping with us.\n\nBest regards,\n%s\n", company)

	return domain.Notification{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Recipient: order.Owner.Email,
		Subject:   fmt.Sprintf("The Order %s has been fulfilled.", order.ID),
		Body:      b.String(),
		CreatedAt: at,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrExternalService):
		return "shipping"
	default:
		return "internal"
	}
}
