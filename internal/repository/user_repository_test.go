package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("a@b.rs", sqlmock.AnyArg(), "PLAYER", "", "").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewUserRepo(db).Create(context.Background(), NewUser{Email: " A@b.rs ", Password: "secret", Role: "PLAYER"}, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE email=\?`).WithArgs("x@y.rs").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = NewUserRepo(db).GetByEmail(context.Background(), "X@y.rs")
	assert.ErrorIs(t, err, ErrNotFound)
}
