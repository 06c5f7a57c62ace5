package game

import (
	"context"
	"testing"

	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/notify"
	"github.com/stretchr/testify/suite"
)

type fakeRecordStore struct {
	deleted []string
}

func (s *fakeRecordStore) DeleteSessionRecord(_ context.Context, sessionID string) error {
	s.deleted = append(s.deleted, sessionID)
	return nil
}

// RegistrySuite tests Registry.
type RegistrySuite struct {
	suite.Suite
	registry *Registry
	records  *fakeRecordStore
}

func (suite *RegistrySuite) SetupTest() {
	suite.records = &fakeRecordStore{}
	suite.registry = NewRegistry(suite.records)
}

func (suite *RegistrySuite) newSession(id string) *Session {
	return NewSession(id, Config{}, Dependencies{
		Notifier: notify.NewRecorder(),
		Delayer:  &manualDelayer{},
	})
}

func (suite *RegistrySuite) TestAdd() {
	suite.True(suite.registry.Add(suite.newSession("s1")), "should add new session")
	suite.Len(suite.registry.All(), 1, "should hold added session")
}

func (suite *RegistrySuite) TestAddDuplicate() {
	original := suite.newSession("s1")
	suite.Require().True(suite.registry.Add(original), "should add new session")
	suite.False(suite.registry.Add(suite.newSession("s1")), "should not add session with known id")
	got, ok := suite.registry.ByID("s1")
	suite.Require().True(ok, "should find session")
	suite.Same(original, got, "should keep original session")
}

func (suite *RegistrySuite) TestRemove() {
	suite.Require().True(suite.registry.Add(suite.newSession("s1")), "should add session")
	suite.Require().NoError(suite.registry.Remove(context.Background(), "s1"), "remove should not fail")
	_, ok := suite.registry.ByID("s1")
	suite.False(ok, "should not find removed session")
	suite.Equal([]string{"s1"}, suite.records.deleted, "should delete persisted record")
}

func (suite *RegistrySuite) TestRemoveUnknown() {
	err := suite.registry.Remove(context.Background(), "s1")
	suite.Require().Error(err, "should fail")
	e, _ := errors.Cast(err)
	suite.Equal(errors.KindResourceNotFound, e.Kind, "should return correct error kind")
	suite.Empty(suite.records.deleted, "should not touch persisted records")
}

func (suite *RegistrySuite) TestByParticipant() {
	session := suite.newSession("s1")
	session.state = StatePreWaiting
	session.enabled = true
	suite.Require().True(suite.registry.Add(session), "should add session")
	suite.Require().True(suite.registry.Add(suite.newSession("s2")), "should add session")
	_, err := session.Join("p1")
	suite.Require().NoError(err, "join should not fail")
	got, ok := suite.registry.ByParticipant("p1")
	suite.Require().True(ok, "should find session by participant")
	suite.Same(session, got, "should find correct session")
	_, ok = suite.registry.ByParticipant("p2")
	suite.False(ok, "should not find session for unknown participant")
}

func (suite *RegistrySuite) TestIdentitiesBySession() {
	session := suite.newSession("s1")
	session.state = StatePreWaiting
	session.enabled = true
	suite.Require().True(suite.registry.Add(session), "should add session")
	for _, identity := range []string{"p1", "p2"} {
		_, err := session.Join(identity)
		suite.Require().NoError(err, "join should not fail")
	}
	suite.Equal([]string{"p1", "p2"}, suite.registry.IdentitiesBySession("s1"),
		"should list identities in join order")
	suite.Empty(suite.registry.IdentitiesBySession("s2"), "unknown session should yield none")
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}
