package kv

import (
	"context"
	"errors"

	"github.com/stretchr/testify/suite"
)

// storeSuite runs the same behavioural checks against every backend.
type storeSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
}

func (s *storeSuite) SetupTest() {
	s.store = s.newStore()
}

func (s *storeSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *storeSuite) TestGetMissingKey() {
	_, err := s.store.Get(context.Background(), "missing")
	s.True(errors.Is(err, ErrNotFound))
}

func (s *storeSuite) TestSetGetDelete() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "subscriber:1", []byte(`{"id":"1"}`)))
	value, err := s.store.Get(ctx, "subscriber:1")
	s.Require().NoError(err)
	s.Equal(`{"id":"1"}`, string(value))

	s.Require().NoError(s.store.Set(ctx, "subscriber:1", []byte(`{"id":"1","v":2}`)))
	value, err = s.store.Get(ctx, "subscriber:1")
	s.Require().NoError(err)
	s.Equal(`{"id":"1","v":2}`, string(value))

	s.Require().NoError(s.store.Delete(ctx, "subscriber:1"))
	_, err = s.store.Get(ctx, "subscriber:1")
	s.ErrorIs(err, ErrNotFound)
}

func (s *storeSuite) TestDeleteMissingKeyIsNotAnError() {
	s.NoError(s.store.Delete(context.Background(), "never-written"))
}

func (s *storeSuite) TestListOperations() {
	ctx := context.Background()

	members, err := s.store.ListRange(ctx, "subscribers")
	s.Require().NoError(err)
	s.Empty(members)

	for _, id := range []string{"a", "b", "c"} {
		s.Require().NoError(s.store.ListAppend(ctx, "subscribers", id))
	}

	members, err = s.store.ListRange(ctx, "subscribers")
	s.Require().NoError(err)
	s.Equal([]string{"a", "b", "c"}, members)

	s.Require().NoError(s.store.ListRemove(ctx, "subscribers", "b"))
	s.Require().NoError(s.store.ListRemove(ctx, "subscribers", "zzz"))

	members, err = s.store.ListRange(ctx, "subscribers")
	s.Require().NoError(err)
	s.Equal([]string{"a", "c"}, members)
}

func (s *storeSuite) TestPing() {
	s.NoError(s.store.Ping(context.Background()))
}
