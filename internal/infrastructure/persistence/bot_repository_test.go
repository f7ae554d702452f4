package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/logger"
	"github.com/chatforge/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockBotRepository creates a GormBotRepository with a mocked SQL connection
func newMockBotRepository(t *testing.T) (*GormBotRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormBotRepository(gormDB), mock, mockDB
}

// tenantCtx returns a context carrying the given tenant ID the way the
// HTTP middleware sets it
func tenantCtx(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

func TestGormBotRepository_FindByID(t *testing.T) {
	t.Run("finds existing bot within tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		botID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "slug", "status", "widget_key"}).
			AddRow(botID, tenantID, "Support Bot", "support-bot", "published", "wk_test")

		mock.ExpectQuery(`SELECT \* FROM "bots" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, botID, 1).
			WillReturnRows(rows)

		found, err := repo.FindByID(tenantCtx(tenantID), botID)

		assert.NoError(t, err)
		assert.NotNil(t, found)
		assert.Equal(t, botID, found.ID)
		assert.Equal(t, "support-bot", found.Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing bot", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		botID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "bots" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, botID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindByID(tenantCtx(tenantID), botID)

		assert.Error(t, err)
		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails closed without tenant in context", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		found, err := repo.FindByID(context.Background(), uuid.New())

		assert.Nil(t, found)
		assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBotRepository_FindByWidgetKey(t *testing.T) {
	t.Run("finds bot without tenant scoping", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		botID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "slug", "status", "widget_key"}).
			AddRow(botID, tenantID, "Support Bot", "support-bot", "published", "wk_public")

		mock.ExpectQuery(`SELECT \* FROM "bots" WHERE widget_key = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("wk_public", 1).
			WillReturnRows(rows)

		// No tenant in context: the widget key is the credential
		found, err := repo.FindByWidgetKey(context.Background(), "wk_public")

		assert.NoError(t, err)
		assert.NotNil(t, found)
		assert.Equal(t, tenantID, found.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for unknown key", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "bots" WHERE widget_key = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("wk_missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindByWidgetKey(context.Background(), "wk_missing")

		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBotRepository_Update(t *testing.T) {
	t.Run("returns conflict when version does not match", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		b := &bot.Bot{}
		b.ID = uuid.New()
		b.TenantID = tenantID
		b.Name = "Support Bot"
		b.Slug = "support-bot"
		b.Version = 3

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "bots" SET .*`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Update(tenantCtx(tenantID), b)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBotRepository_ExistsBySlug(t *testing.T) {
	t.Run("reports existing slug", func(t *testing.T) {
		repo, mock, mockDB := newMockBotRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "bots" WHERE tenant_id = \$1 AND slug = \$2`).
			WithArgs(tenantID, "support-bot").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsBySlug(tenantCtx(tenantID), "support-bot")

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
