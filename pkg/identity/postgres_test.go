package identity

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestCreateOrganization(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO organizations").
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "random-alias").
		WillReturnResult(sqlmock.NewResult(0, 1))

	org, err := store.CreateOrganization(context.Background(), "alice@example.com", "random-alias")
	require.NoError(t, err)
	assert.NotEmpty(t, org.ID)
	assert.Equal(t, "alice@example.com", org.Name)
	assert.Equal(t, "random-alias", org.Alias)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrganizationDuplicateName(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO organizations").
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "alias").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateOrganization(context.Background(), "alice@example.com", "alias")
	assert.True(t, IsDuplicateName(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganizationNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, alias FROM organizations WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "alias"}))

	_, err := store.GetOrganization(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganizationLoadsAttributesAndDomains(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, alias FROM organizations WHERE id").
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "alias"}).
			AddRow("org1", "alice@example.com", "alias"))
	mock.ExpectQuery("SELECT name, value_list FROM organization_attributes").
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows([]string{"name", "value_list"}).
			AddRow("subscription_plan_name", pq.StringArray{"pro-plan", "active"}))
	mock.ExpectQuery("SELECT domain, verified FROM organization_domains").
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows([]string{"domain", "verified"}).
			AddRow("example.com", true))

	org, err := store.GetOrganization(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pro-plan", "active"}, org.Attributes["subscription_plan_name"])
	require.Len(t, org.Domains, 1)
	assert.Equal(t, "example.com", org.Domains[0].Name)
	assert.True(t, org.Domains[0].Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO organization_members").
		WithArgs("org1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.AddMember(context.Background(), "org1", "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAttributesTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM organization_attributes").
		WithArgs("org1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO organization_attributes").
		WithArgs("org1", "subscription_plan_name", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SetAttributes(context.Background(), "org1", map[string][]string{
		"subscription_plan_name": {"free-plan"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, email, first_name, last_name FROM users").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name"}))

	_, err := store.GetUser(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
