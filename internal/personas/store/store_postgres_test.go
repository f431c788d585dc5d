package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"personas/internal/personas/models"
	"personas/internal/platform/logger"
)

var personaRowColumns = []string{
	"id", "tipo_documento", "numero_documento", "primer_nombre", "segundo_nombre",
	"apellidos", "fecha_nacimiento", "genero", "correo_electronico", "celular", "created_at", "updated_at",
}

var snapshotColumns = []string{
	"tipo_documento", "numero_documento", "primer_nombre", "segundo_nombre",
	"apellidos", "fecha_nacimiento", "genero", "correo_electronico", "celular",
}

type PostgresStoreSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *PostgresStore
	now   time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.mock = mock
	s.store = NewPostgres(db, logger.Discard())
	s.now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *PostgresStoreSuite) record() *models.Record {
	return &models.Record{
		DocumentType:   models.DocumentCedula,
		DocumentNumber: "1020304050",
		FirstName:      "Ana",
		Surnames:       "Gómez",
		BirthDate:      models.NewDate(1990, time.March, 4),
		Gender:         models.GenderFemenino,
		Email:          "ana@example.com",
		Phone:          "3001234567",
	}
}

func (s *PostgresStoreSuite) personaRow(id int64, doc, first, surnames, birth string) *sqlmock.Rows {
	return sqlmock.NewRows(personaRowColumns).
		AddRow(id, "Cédula", doc, first, nil, surnames, birth, "Femenino", "ana@example.com", "3001234567", s.now, s.now)
}

func (s *PostgresStoreSuite) TestCreate() {
	s.Run("returns stored persona", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO personas")).
			WithArgs("Cédula", "1020304050", "Ana", nil, "Gómez", sqlmock.AnyArg(), "Femenino", "ana@example.com", "3001234567").
			WillReturnRows(s.personaRow(7, "1020304050", "Ana", "Gómez", "1990-03-04"))

		p, err := s.store.Create(context.Background(), s.record())
		s.Require().NoError(err)
		s.Equal(int64(7), p.ID)
		s.Equal("1990-03-04", p.BirthDate.String())
		s.Equal(models.DocumentCedula, p.DocumentType)
	})

	s.Run("maps unique violation to conflict", func() {
		s.mock.ExpectQuery("INSERT INTO personas").WillReturnError(&pq.Error{Code: "23505"})

		_, err := s.store.Create(context.Background(), s.record())
		s.ErrorIs(err, ErrConflict)
	})

	s.Run("wraps other driver errors", func() {
		s.mock.ExpectQuery("INSERT INTO personas").WillReturnError(errors.New("connection reset"))

		_, err := s.store.Create(context.Background(), s.record())
		s.ErrorContains(err, "insert persona")
		s.NotErrorIs(err, ErrConflict)
	})
}

func (s *PostgresStoreSuite) TestFindByDocument() {
	s.Run("found", func() {
		s.mock.ExpectQuery("WHERE numero_documento = \\$1").
			WithArgs("1020304050").
			WillReturnRows(s.personaRow(1, "1020304050", "Ana", "Gómez", "1990-03-04"))

		p, err := s.store.FindByDocument(context.Background(), "1020304050")
		s.Require().NoError(err)
		s.Equal("Ana Gómez", p.DisplayName())
	})

	s.Run("missing", func() {
		s.mock.ExpectQuery("WHERE numero_documento = \\$1").
			WithArgs("999").
			WillReturnRows(sqlmock.NewRows(personaRowColumns))

		_, err := s.store.FindByDocument(context.Background(), "999")
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	s.mock.ExpectQuery("UPDATE personas").WillReturnRows(sqlmock.NewRows(personaRowColumns))

	_, err := s.store.Update(context.Background(), "1020304050", s.record())
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresStoreSuite) TestDelete() {
	s.Run("deleted", func() {
		s.mock.ExpectExec("DELETE FROM personas").WithArgs("1").WillReturnResult(sqlmock.NewResult(0, 1))
		s.NoError(s.store.Delete(context.Background(), "1"))
	})

	s.Run("missing", func() {
		s.mock.ExpectExec("DELETE FROM personas").WithArgs("2").WillReturnResult(sqlmock.NewResult(0, 0))
		s.ErrorIs(s.store.Delete(context.Background(), "2"), ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestListIsNewestFirstAndBounded() {
	s.mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT $1")).
		WithArgs(ListLimit).
		WillReturnRows(s.personaRow(2, "2", "Luis", "Pérez", "1995-02-01"))

	out, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Len(out, 1)
}

func (s *PostgresStoreSuite) TestSearchBuildsFilters() {
	s.Run("no filters", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("FROM personas ORDER BY id")).
			WillReturnRows(sqlmock.NewRows(personaRowColumns))

		out, err := s.store.Search(context.Background(), SearchFilter{})
		s.Require().NoError(err)
		s.Empty(out)
	})

	s.Run("all filters", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE numero_documento = $1 AND tipo_documento = $2 AND (primer_nombre ILIKE $3 OR apellidos ILIKE $3)")).
			WithArgs("1020304050", "Cédula", "%an%").
			WillReturnRows(s.personaRow(1, "1020304050", "Ana", "Gómez", "1990-03-04"))

		out, err := s.store.Search(context.Background(), SearchFilter{
			DocumentNumber: "1020304050",
			DocumentType:   "Cédula",
			Name:           "an",
		})
		s.Require().NoError(err)
		s.Len(out, 1)
	})
}

func (s *PostgresStoreSuite) TestSnapshot() {
	s.Run("keeps storage order and tolerates bad dates", func() {
		s.mock.ExpectQuery("FROM personas").WillReturnRows(
			sqlmock.NewRows(snapshotColumns).
				AddRow("Cédula", "1", "Ana", nil, "Gómez", "1990-03-04", "Femenino", "a@example.com", "3001234567").
				AddRow("Cédula", "2", "Luis", "Carlos", "Pérez", "not-a-date", "Masculino", "l@example.com", "3007654321").
				AddRow("Cédula", "3", "Eva", nil, "Ruiz", nil, "Femenino", "e@example.com", "3000000000"),
		)

		records, err := s.store.Snapshot(context.Background())
		s.Require().NoError(err)
		s.Require().Len(records, 3)
		s.Equal("1", records[0].DocumentNumber)
		s.Equal("1990-03-04", records[0].BirthDate.String())
		s.True(records[1].BirthDate.IsZero())
		s.Require().NotNil(records[1].SecondName)
		s.Equal("Carlos", *records[1].SecondName)
		s.True(records[2].BirthDate.IsZero())
	})

	s.Run("empty table yields empty slice", func() {
		s.mock.ExpectQuery("FROM personas").WillReturnRows(sqlmock.NewRows(snapshotColumns))

		records, err := s.store.Snapshot(context.Background())
		s.Require().NoError(err)
		s.NotNil(records)
		s.Empty(records)
	})

	s.Run("query failure", func() {
		s.mock.ExpectQuery("FROM personas").WillReturnError(errors.New("connection refused"))

		_, err := s.store.Snapshot(context.Background())
		s.ErrorContains(err, "snapshot personas")
	})
}

func (s *PostgresStoreSuite) TestStatistics() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM personas")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	n, err := s.store.Count(context.Background())
	s.Require().NoError(err)
	s.Equal(3, n)

	s.mock.ExpectQuery("GROUP BY genero").
		WillReturnRows(sqlmock.NewRows([]string{"genero", "cantidad"}).AddRow("Femenino", 2).AddRow("Masculino", 1))
	dist, err := s.store.GenderDistribution(context.Background())
	s.Require().NoError(err)
	s.Equal([]GenderCount{{Gender: "Femenino", Count: 2}, {Gender: "Masculino", Count: 1}}, dist)

	s.mock.ExpectQuery("AVG").WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))
	avg, err := s.store.AverageAge(context.Background())
	s.Require().NoError(err)
	s.Zero(avg)
}
