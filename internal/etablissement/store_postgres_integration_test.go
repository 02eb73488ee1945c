//go:build integration

package etablissement_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"edconnekt/internal/etablissement"
	"edconnekt/pkg/platform/sentinel"
	"edconnekt/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *etablissement.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = etablissement.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	// Truncate in dependency order.
	err := s.postgres.TruncateTables(context.Background(),
		"eleves", "classes", "ressources", "utilisateurs", "etablissements")
	s.Require().NoError(err)
}

func newEtablissement(email string) *etablissement.Etablissement {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &etablissement.Etablissement{
		ID:        uuid.New(),
		Nom:       "Lycée Pasteur",
		Email:     email,
		Status:    etablissement.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	e := newEtablissement("contact@pasteur.edu")

	s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, e))

	got, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.Nom, got.Nom)
	s.Equal(e.Email, got.Email)
	s.Equal(etablissement.StatusActive, got.Status)
}

// TestConcurrentUniqueEmailViolation verifies that concurrent creation
// attempts with the same email result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentUniqueEmailViolation() {
	ctx := context.Background()
	email := "race-" + uuid.NewString() + "@ecole.fr"
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateIfEmailAvailable(ctx, newEtablissement(email))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestEmailUniquenessIsCaseInsensitive() {
	ctx := context.Background()

	s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, newEtablissement("dup@ecole.fr")))
	err := s.store.CreateIfEmailAvailable(ctx, newEtablissement("DUP@ecole.fr"))
	s.Require().True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestUpdateUnknownIsNotFound() {
	err := s.store.Update(context.Background(), newEtablissement("ghost@ecole.fr"))
	s.Require().True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListFiltersByStatus() {
	ctx := context.Background()

	active := newEtablissement("a@ecole.fr")
	s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, active))

	suspended := newEtablissement("b@ecole.fr")
	suspended.Status = etablissement.StatusSuspended
	s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, suspended))

	out, err := s.store.List(ctx, etablissement.ListFilter{Status: etablissement.StatusSuspended})
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(suspended.ID, out[0].ID)
}
