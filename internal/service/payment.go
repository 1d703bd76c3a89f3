package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"coursepay/internal/client"
	"coursepay/internal/dto"
	"coursepay/internal/eventbus"
	"coursepay/internal/model"
	"coursepay/internal/provider"
	"coursepay/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrCourseFree means the buyer tried to pay for a course with a
	// zero price; the free-enrollment flow handles those.
	ErrCourseFree = errors.New("course is free, use free enrollment")

	// ErrInvalidSignature means the webhook body failed verification
	// and was never parsed as trusted data.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Card processor webhook event types.
const (
	cardEventIntentSucceeded = "payment_intent.succeeded"
	cardEventIntentFailed    = "payment_intent.payment_failed"
)

type PaymentService interface {
	Initiate(ctx context.Context, buyerID string, req *dto.InitiateRequest) (*dto.InitiateResponse, error)
	HandleCardWebhook(ctx context.Context, signature string, body []byte) error
	Capture(ctx context.Context, buyerID, orderID string) (*dto.CaptureResponse, error)
	ListPurchases(ctx context.Context, buyerID string, page, limit int) (*dto.PagedResponse[dto.PurchaseItem], error)
	ListEarnings(ctx context.Context, instructorID string, page, limit int) (*dto.PagedResponse[dto.EarningItem], error)
}

type paymentServiceImpl struct {
	catalog          client.CatalogClient
	registry         *provider.Registry
	bus              *eventbus.Bus
	paymentRepo      repository.PaymentRepository
	enrollmentRepo   repository.EnrollmentRepository
	webhookEventRepo repository.WebhookEventRepository
	feePercent       int64
	webhookSecret    []byte
}

func NewPaymentService(
	catalog client.CatalogClient,
	registry *provider.Registry,
	bus *eventbus.Bus,
	paymentRepo repository.PaymentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	webhookEventRepo repository.WebhookEventRepository,
	feePercent int64,
	webhookSecret string,
) PaymentService {
	return &paymentServiceImpl{
		catalog:          catalog,
		registry:         registry,
		bus:              bus,
		paymentRepo:      paymentRepo,
		enrollmentRepo:   enrollmentRepo,
		webhookEventRepo: webhookEventRepo,
		feePercent:       feePercent,
		webhookSecret:    []byte(webhookSecret),
	}
}

// SplitFee computes the platform cut of a gross amount. The remainder
// goes to the payee, so fee+payee always equals the gross amount.
func SplitFee(amount, feePercent int64) (fee, payee int64) {
	fee = amount * feePercent / 100
	return fee, amount - fee
}

func (s *paymentServiceImpl) Initiate(ctx context.Context, buyerID string, req *dto.InitiateRequest) (*dto.InitiateResponse, error) {
	course, err := s.catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course.Price <= 0 {
		return nil, ErrCourseFree
	}

	if _, err := s.enrollmentRepo.FindByBuyerCourse(ctx, buyerID, req.CourseID); err == nil {
		return nil, repository.ErrAlreadyEnrolled
	} else if !errors.Is(err, repository.ErrEnrollmentNotFound) {
		return nil, fmt.Errorf("check existing enrollment: %w", err)
	}

	adapter, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	result, err := adapter.Initiate(ctx, provider.InitiateRequest{
		Amount:   course.Price,
		Currency: course.Currency,
		Metadata: map[string]string{
			"buyer_id":  buyerID,
			"course_id": req.CourseID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("provider initiate: %w", err)
	}

	fee, payee := SplitFee(course.Price, s.feePercent)

	payment := &model.Payment{
		ID:                uuid.NewString(),
		BuyerID:           buyerID,
		CourseID:          req.CourseID,
		InstructorID:      course.InstructorID,
		Amount:            course.Price,
		Currency:          course.Currency,
		Provider:          adapter.Name(),
		Fee:               fee,
		PayeeAmount:       payee,
		ConvertedAmount:   result.ConvertedAmount,
		ConvertedCurrency: result.ConvertedCurrency,
	}
	switch result.Ref.Kind {
	case model.RefWalletOrder:
		payment.WalletOrderID = &result.Ref.ID
	default:
		payment.CardIntentID = &result.Ref.ID
	}

	if err := s.paymentRepo.CreatePending(ctx, payment); err != nil {
		// A client retry of the same initiation; the existing row is
		// authoritative.
		if errors.Is(err, repository.ErrDuplicateExternalRef) {
			existing, findErr := s.paymentRepo.FindByRef(ctx, result.Ref)
			if findErr != nil {
				return nil, fmt.Errorf("load existing payment: %w", findErr)
			}
			payment = existing
		} else {
			return nil, fmt.Errorf("create pending payment: %w", err)
		}
	}

	return &dto.InitiateResponse{
		PaymentID:    payment.ID,
		ExternalID:   result.Ref.ID,
		ClientSecret: result.ClientSecret,
		ApproveURL:   result.ApproveURL,
	}, nil
}

type cardWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// HandleCardWebhook processes one asynchronous delivery from the card
// processor. The signature is verified against the exact raw bytes
// before the payload is parsed; nothing reaches the ledger otherwise.
func (s *paymentServiceImpl) HandleCardWebhook(ctx context.Context, signature string, body []byte) error {
	if !s.verifySignature(body, signature) {
		log.Warn().Msg("card webhook rejected: bad signature")
		return ErrInvalidSignature
	}

	var event cardWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	seen, err := s.webhookEventRepo.Exists(ctx, provider.CardProviderName, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		log.Info().Str("event_id", event.ID).Msg("duplicate card webhook event, acknowledging")
		return nil
	}

	ref := model.Reference{Kind: model.RefCardIntent, ID: event.Data.Object.ID}

	switch event.Type {
	case cardEventIntentSucceeded:
		if err := s.settleSucceeded(ctx, ref); err != nil {
			return err
		}
	case cardEventIntentFailed:
		if _, _, err := s.paymentRepo.MarkFailed(ctx, ref); err != nil {
			if errors.Is(err, repository.ErrPaymentNotFound) {
				log.Warn().Str("intent_id", ref.ID).Msg("failed event for unknown payment")
			}
			return err
		}
	default:
		// Event types we do not handle are acknowledged so the
		// provider stops redelivering them.
		log.Debug().Str("event_type", event.Type).Msg("ignoring card webhook event")
		return nil
	}

	return s.webhookEventRepo.MarkProcessed(ctx, provider.CardProviderName, event.ID, event.Type)
}

// settleSucceeded makes the pending→succeeded transition and, only if
// this call won it, publishes the fulfillment event. Duplicate
// deliveries find the row already terminal and emit nothing.
func (s *paymentServiceImpl) settleSucceeded(ctx context.Context, ref model.Reference) error {
	payment, transitioned, err := s.paymentRepo.MarkSucceeded(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			// Likely a delivery that raced CreatePending; answering
			// with failure makes the provider redeliver once the
			// pending row exists.
			log.Warn().Str("external_ref", ref.ID).Msg("success event for unknown payment")
		}
		return err
	}

	if transitioned {
		s.bus.Emit(ctx, eventbus.TopicPaymentSucceeded, eventbus.PaymentSucceeded{
			PaymentID: payment.ID,
			BuyerID:   payment.BuyerID,
			CourseID:  payment.CourseID,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
		})
	}

	return nil
}

func (s *paymentServiceImpl) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Capture drives the wallet provider's synchronous confirmation. Only
// the provider's explicit completed status counts as success; any
// other outcome, including a timeout, marks the payment failed rather
// than leaving it pending.
func (s *paymentServiceImpl) Capture(ctx context.Context, buyerID, orderID string) (*dto.CaptureResponse, error) {
	ref := model.Reference{Kind: model.RefWalletOrder, ID: orderID}

	payment, err := s.paymentRepo.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	// Order ids are not capabilities; only the buyer who opened the
	// payment may drive its confirmation.
	if payment.BuyerID != buyerID {
		return nil, repository.ErrPaymentNotFound
	}

	adapter, err := s.registry.Get(payment.Provider)
	if err != nil {
		return nil, err
	}

	result, err := adapter.Confirm(ctx, orderID)
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("wallet confirm failed")
		if _, _, markErr := s.paymentRepo.MarkFailed(ctx, ref); markErr != nil {
			return nil, fmt.Errorf("mark payment failed: %w", markErr)
		}
		return &dto.CaptureResponse{Success: false, Reason: "provider error"}, nil
	}

	if !result.Completed {
		log.Info().Str("order_id", orderID).Str("status", result.Status).Msg("capture not completed")
		if _, _, markErr := s.paymentRepo.MarkFailed(ctx, ref); markErr != nil {
			return nil, fmt.Errorf("mark payment failed: %w", markErr)
		}
		return &dto.CaptureResponse{Success: false, Reason: "payment not completed"}, nil
	}

	if err := s.settleSucceeded(ctx, ref); err != nil {
		return nil, err
	}

	resp := &dto.CaptureResponse{Success: true}

	// Fulfillment ran synchronously on the emit above; if it failed
	// internally the payment is still settled and the gap is an
	// operational incident, not a capture failure.
	enrollment, err := s.enrollmentRepo.FindByBuyerCourse(ctx, payment.BuyerID, payment.CourseID)
	if err == nil {
		resp.EnrollmentID = enrollment.ID
	} else if !errors.Is(err, repository.ErrEnrollmentNotFound) {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}

	return resp, nil
}

func (s *paymentServiceImpl) ListPurchases(ctx context.Context, buyerID string, page, limit int) (*dto.PagedResponse[dto.PurchaseItem], error) {
	payments, total, err := s.paymentRepo.ListByBuyer(ctx, buyerID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	items := make([]dto.PurchaseItem, len(payments))
	for i, p := range payments {
		items[i] = dto.PurchaseItem{
			PaymentID: p.ID,
			CourseID:  p.CourseID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt,
		}
	}

	return &dto.PagedResponse[dto.PurchaseItem]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (s *paymentServiceImpl) ListEarnings(ctx context.Context, instructorID string, page, limit int) (*dto.PagedResponse[dto.EarningItem], error) {
	payments, total, err := s.paymentRepo.ListSucceededByInstructor(ctx, instructorID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}

	items := make([]dto.EarningItem, len(payments))
	for i, p := range payments {
		items[i] = dto.EarningItem{
			PaymentID:   p.ID,
			CourseID:    p.CourseID,
			Amount:      p.Amount,
			Fee:         p.Fee,
			PayeeAmount: p.PayeeAmount,
			Currency:    p.Currency,
			CreatedAt:   p.CreatedAt,
		}
	}

	return &dto.PagedResponse[dto.EarningItem]{Items: items, Page: page, Limit: limit, Total: total}, nil
}
