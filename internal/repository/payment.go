package repository

import (
	"context"
	"errors"
	"time"

	"coursepay/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrPaymentNotFound means no ledger row exists for the external
	// reference. Either a forged callback or a delivery that raced an
	// in-flight CreatePending; the provider is expected to redeliver.
	ErrPaymentNotFound = errors.New("payment not found for external reference")

	// ErrDuplicateExternalRef means a pending row already exists for
	// the reference. The existing record is authoritative.
	ErrDuplicateExternalRef = errors.New("payment with this external reference already exists")
)

type PaymentRepository interface {
	CreatePending(ctx context.Context, payment *model.Payment) error
	FindByRef(ctx context.Context, ref model.Reference) (*model.Payment, error)
	FindByID(ctx context.Context, paymentID string) (*model.Payment, error)
	// MarkSucceeded flips pending→succeeded. transitioned is true only
	// for the caller that made the transition; a duplicate call on a
	// terminal row returns the row with transitioned=false.
	MarkSucceeded(ctx context.Context, ref model.Reference) (payment *model.Payment, transitioned bool, err error)
	MarkFailed(ctx context.Context, ref model.Reference) (payment *model.Payment, transitioned bool, err error)
	ListByBuyer(ctx context.Context, buyerID string, page, limit int) ([]*model.Payment, int64, error)
	ListSucceededByInstructor(ctx context.Context, instructorID string, page, limit int) ([]*model.Payment, int64, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{db: db}
}

func (r *paymentRepoImpl) CreatePending(ctx context.Context, payment *model.Payment) error {
	payment.Status = model.PaymentPending

	err := r.db.WithContext(ctx).Create(payment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateExternalRef
	}
	return err
}

func (r *paymentRepoImpl) FindByRef(ctx context.Context, ref model.Reference) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where(ref.Kind.Column()+" = ?", ref.ID).
		First(&payment).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) FindByID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", paymentID).
		First(&payment).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepoImpl) MarkSucceeded(ctx context.Context, ref model.Reference) (*model.Payment, bool, error) {
	return r.transition(ctx, ref, model.PaymentSucceeded)
}

func (r *paymentRepoImpl) MarkFailed(ctx context.Context, ref model.Reference) (*model.Payment, bool, error) {
	return r.transition(ctx, ref, model.PaymentFailed)
}

// transition is the atomic conditional update behind both Mark calls:
// only a row still in pending moves, so two concurrent deliveries for
// the same reference cannot both observe transitioned=true.
func (r *paymentRepoImpl) transition(ctx context.Context, ref model.Reference, to model.PaymentStatus) (*model.Payment, bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where(ref.Kind.Column()+" = ? AND status = ?", ref.ID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, false, result.Error
	}

	payment, err := r.FindByRef(ctx, ref)
	if err != nil {
		return nil, false, err
	}

	return payment, result.RowsAffected == 1, nil
}

func (r *paymentRepoImpl) ListByBuyer(ctx context.Context, buyerID string, page, limit int) ([]*model.Payment, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("buyer_id = ?", buyerID), page, limit)
}

func (r *paymentRepoImpl) ListSucceededByInstructor(ctx context.Context, instructorID string, page, limit int) ([]*model.Payment, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("instructor_id = ? AND status = ?", instructorID, model.PaymentSucceeded), page, limit)
}

func (r *paymentRepoImpl) list(ctx context.Context, query *gorm.DB, page, limit int) ([]*model.Payment, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []*model.Payment
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}
