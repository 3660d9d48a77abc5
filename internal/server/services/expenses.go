package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spendkeeper/spendkeeper/internal/common"
	sc "github.com/spendkeeper/spendkeeper/internal/server/config"
	"github.com/spendkeeper/spendkeeper/internal/server/models"
	"github.com/spendkeeper/spendkeeper/internal/server/repositories/repomanager"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// ExpenseService implements spending-record CRUD and receipt uploads.
// Every operation is scoped to the authenticated user; the repository
// layer enforces ownership in its WHERE clauses.
type ExpenseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewExpenseService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *ExpenseService {
	return &ExpenseService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

// GetReceiptStorageKey returns a fresh object key for a receipt upload,
// partitioned by date so the bucket stays browsable.
func GetReceiptStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("receipts/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Create stores a new expense for the given user.
func (s *ExpenseService) Create(ctx context.Context, userID string, expense *models.Expense) (*models.Expense, error) {
	if expense.Amount <= 0 || expense.Category == "" {
		return nil, common.ErrorValidation
	}

	expense.UserID = userID
	if expense.SpentAt.IsZero() {
		expense.SpentAt = time.Now()
	}

	repo := s.repomanager.Expenses(s.db)
	e, err := repo.Create(ctx, expense)
	if err != nil {
		return nil, fmt.Errorf("error creating expense: %w", err)
	}
	return e, nil
}

// List returns the user's expenses, newest spending first.
func (s *ExpenseService) List(ctx context.Context, userID string) ([]*models.Expense, error) {
	repo := s.repomanager.Expenses(s.db)
	list, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}
	return list, nil
}

// Update applies a partial update to one of the user's expenses. An id
// that does not exist, or belongs to someone else, yields ErrorNotFound.
func (s *ExpenseService) Update(ctx context.Context, userID string, id string, upd *models.ExpenseUpdate) (*models.Expense, error) {
	if upd.Amount != nil && *upd.Amount <= 0 {
		return nil, common.ErrorValidation
	}
	if upd.Category != nil && *upd.Category == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Expenses(s.db)
	e, err := repo.Update(ctx, id, userID, upd)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating expense: %w", err)
	}
	return e, nil
}

// Delete removes one of the user's expenses.
func (s *ExpenseService) Delete(ctx context.Context, userID string, id string) error {
	repo := s.repomanager.Expenses(s.db)
	if err := repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// ReceiptUploadURL returns a storage key and a presigned PUT URL the
// client can upload a receipt image to. The URL is valid for 15 minutes;
// the key is later attached to an expense via Update.
func (s *ExpenseService) ReceiptUploadURL(ctx context.Context) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetReceiptStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}
