package portal

import (
	"context"
	"testing"

	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/event"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// SessionAnnouncerSuite tests SessionAnnouncer.
type SessionAnnouncerSuite struct {
	suite.Suite
	portal    *Stub
	announcer *SessionAnnouncer
}

func (suite *SessionAnnouncerSuite) SetupTest() {
	suite.portal = &Stub{}
	suite.announcer = NewSessionAnnouncer(suite.portal)
}

func (suite *SessionAnnouncerSuite) TestPublish() {
	suite.portal.On("Publish", mock.Anything, TopicSessionState, event.SessionStateChangedPayload{
		SessionID: "s1",
		From:      game.StateWaiting,
		To:        game.StateActive,
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	suite.announcer.Listener()("s1", game.StateWaiting, game.StateActive)
}

func (suite *SessionAnnouncerSuite) TestParticipantJoined() {
	suite.portal.On("Publish", mock.Anything, TopicSessionJoins, event.ParticipantEventPayload{
		SessionID: "s1",
		Identity:  "p1",
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	suite.announcer.ParticipantJoined("s1", "p1")
}

func (suite *SessionAnnouncerSuite) TestParticipantLeft() {
	suite.portal.On("Publish", mock.Anything, TopicSessionLeaves, event.ParticipantEventPayload{
		SessionID: "s1",
		Identity:  "p1",
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	suite.announcer.ParticipantLeft("s1", "p1")
}

func (suite *SessionAnnouncerSuite) TestParticipantEliminated() {
	suite.portal.On("Publish", mock.Anything, TopicSessionEliminations, event.EliminationEventPayload{
		SessionID: "s1",
		Shooter:   "p1",
		Target:    "p2",
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	suite.announcer.ParticipantEliminated("s1", "p1", "p2")
}

func (suite *SessionAnnouncerSuite) TestRoundWon() {
	suite.portal.On("Publish", mock.Anything, TopicSessionWinners, event.RoundWonPayload{
		SessionID: "s1",
		TeamID:    "red",
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	suite.announcer.RoundWon("s1", "red")
}

func (suite *SessionAnnouncerSuite) TestAnnounceError() {
	err := errors.Error{
		Code:    errors.ErrBadRequest,
		Kind:    errors.KindSetupIncomplete,
		Message: "setup incomplete",
	}
	suite.portal.On("Publish", mock.Anything, TopicServerErrors,
		event.ErrorEventPayloadFromError(err)).Once()
	defer suite.portal.AssertExpectations(suite.T())
	suite.announcer.AnnounceError(context.Background(), err)
}

func TestSessionAnnouncer(t *testing.T) {
	suite.Run(t, new(SessionAnnouncerSuite))
}
