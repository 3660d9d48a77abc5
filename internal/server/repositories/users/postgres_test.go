package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spendkeeper/spendkeeper/internal/common"
	"github.com/spendkeeper/spendkeeper/internal/server/models"
)

var pgUniqueErr = pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value violates unique constraint"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userColumns() []string {
	return []string{"id", "email", "username", "password_hash", "refresh_token_hash", "token_version", "created_at", "updated_at"}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*username,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*token_version,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "token_version", "created_at", "updated_at"}).
		AddRow("u-1", int64(0), now, now)
	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "alice", "hash").
		WillReturnRows(rows)

	u := &models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "hash"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.TokenVersion != 0 {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("alice@example.com", "alice", "hash").
		WillReturnError(&pgUniqueErr)

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "hash"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected common.ErrorAlreadyExists, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,\s*username,\s*password_hash,\s*refresh_token_hash,\s*token_version,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`

	now := time.Now()
	rows := sqlmock.NewRows(userColumns()).
		AddRow("u-1", "alice@example.com", "alice", "hash", nil, int64(3), now, now)
	mock.ExpectQuery(q).WithArgs("alice@example.com").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.TokenVersion != 3 || got.RefreshTokenHash.Valid {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,.*FROM\s+users\s+WHERE\s+email`).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	now := time.Now()
	rows := sqlmock.NewRows(userColumns()).
		AddRow("u-2", "bob@example.com", "bob", "hash", "digest", int64(1), now, now)
	mock.ExpectQuery(q).WithArgs("u-2").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-2")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !got.RefreshTokenHash.Valid || got.RefreshTokenHash.String != "digest" {
		t.Fatalf("unexpected refresh hash: %+v", got.RefreshTokenHash)
	}
}

func TestIncrementTokenVersion_ReturnsNewValue(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+token_version\s*=\s*token_version\s*\+\s*1,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+token_version\s*$`

	mock.ExpectQuery(q).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(int64(4)))

	v, err := repo.IncrementTokenVersion(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("IncrementTokenVersion error: %v", err)
	}
	if v != 4 {
		t.Fatalf("expected version 4, got %d", v)
	}
}

func TestIncrementTokenVersion_UserGone(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+users\s+SET\s+token_version`).
		WithArgs("u-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementTokenVersion(context.Background(), "u-404")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestRotateTokenVersion_GuardedByHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+token_version\s*=\s*token_version\s*\+\s*1,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+refresh_token_hash\s*=\s*\$2\s+RETURNING\s+token_version\s*$`

	mock.ExpectQuery(q).WithArgs("u-1", "old-digest").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(int64(9)))

	v, err := repo.RotateTokenVersion(context.Background(), "u-1", "old-digest")
	if err != nil {
		t.Fatalf("RotateTokenVersion error: %v", err)
	}
	if v != 9 {
		t.Fatalf("expected version 9, got %d", v)
	}
}

func TestRotateTokenVersion_LostRace(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+users\s+SET\s+token_version.*refresh_token_hash`).
		WithArgs("u-1", "stale-digest").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RotateTokenVersion(context.Background(), "u-1", "stale-digest")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound when hash no longer matches, got %v", err)
	}
}

func TestSaveRefreshTokenHash_VersionGuard(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token_hash\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+token_version\s*=\s*\$3\s*$`

	mock.ExpectExec(q).WithArgs("u-1", "digest", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveRefreshTokenHash(context.Background(), "u-1", "digest", 5); err != nil {
		t.Fatalf("SaveRefreshTokenHash error: %v", err)
	}
}

func TestSaveRefreshTokenHash_StaleVersion(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token_hash`).
		WithArgs("u-1", "digest", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveRefreshTokenHash(context.Background(), "u-1", "digest", 5)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound for stale version, got %v", err)
	}
}

func TestClearRefreshToken_BumpsVersion(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token_hash\s*=\s*NULL,\s*token_version\s*=\s*token_version\s*\+\s*1,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClearRefreshToken(context.Background(), "u-1"); err != nil {
		t.Fatalf("ClearRefreshToken error: %v", err)
	}
}

func TestClearRefreshToken_UserGone(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token_hash\s*=\s*NULL`).
		WithArgs("u-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ClearRefreshToken(context.Background(), "u-404")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}
