package claim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestClaimerTestSuite(t *testing.T) {
	suite.Run(t, new(ClaimerTestSuite))
}

type ClaimerTestSuite struct {
	suite.Suite
	ctx     context.Context
	checker *mockChecker
	sent    *recorder
	sender  mockSender
	claimer DefaultClaimer
}

func (s *ClaimerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.checker = &mockChecker{duplicated: make(map[uint64]bool)}
	s.sent = &recorder{}
	s.sender = mockSender{recorder: s.sent}
	s.claimer = NewClaimer(s.checker, s.sender)
}

func generation(c Claimer) int {
	return c.(DefaultClaimer).sender.(mockSender).generation
}

func (s *ClaimerTestSuite) TestNovelClaimIsSent() {
	claim := testClaim(0)

	next, err := s.claimer.Process(s.ctx, &claim)
	require.Nil(s.T(), err)

	require.Equal(s.T(), 1, s.checker.calls)
	require.Len(s.T(), s.sent.get(), 1)
	require.Equal(s.T(), claim, s.sent.get()[0])

	// New state carries the updated sender, old one is untouched
	require.Equal(s.T(), 1, generation(next))
	require.Equal(s.T(), 0, generation(s.claimer))
}

func (s *ClaimerTestSuite) TestDuplicateIsSkipped() {
	s.checker.duplicated[0] = true
	claim := testClaim(0)

	next, err := s.claimer.Process(s.ctx, &claim)
	require.Nil(s.T(), err)

	require.Empty(s.T(), s.sent.get())
	require.Equal(s.T(), s.claimer, next)
}

func (s *ClaimerTestSuite) TestSameClaimTwice() {
	claim := testClaim(0)

	next, err := s.claimer.Process(s.ctx, &claim)
	require.Nil(s.T(), err)

	// The first submission made it on-chain
	s.checker.duplicated[0] = true

	next, err = next.Process(s.ctx, &claim)
	require.Nil(s.T(), err)

	require.Len(s.T(), s.sent.get(), 1)
	require.Equal(s.T(), 2, s.checker.calls)
	require.Equal(s.T(), 1, generation(next))
}

func (s *ClaimerTestSuite) TestSequence() {
	s.checker.duplicated[0] = true
	s.checker.duplicated[1] = true

	var c Claimer = s.claimer
	for epoch := uint64(0); epoch < 5; epoch++ {
		claim := testClaim(epoch)
		var err error
		c, err = c.Process(s.ctx, &claim)
		require.Nil(s.T(), err)
	}

	sent := s.sent.get()
	require.Len(s.T(), sent, 3)
	for i, claim := range sent {
		require.Equal(s.T(), uint64(i+2), claim.EpochIndex)
	}
	require.Equal(s.T(), 3, generation(c))
}

func (s *ClaimerTestSuite) TestCheckerError() {
	boom := errors.New("rpc unavailable")
	s.checker.err = boom
	claim := testClaim(0)

	next, err := s.claimer.Process(s.ctx, &claim)
	require.Nil(s.T(), next)
	require.ErrorIs(s.T(), err, ErrDuplicateCheck)
	require.ErrorIs(s.T(), err, boom)
	require.NotErrorIs(s.T(), err, ErrTransactionSend)

	// Nothing is sent when the check fails
	require.Empty(s.T(), s.sent.get())
}

func (s *ClaimerTestSuite) TestSenderError() {
	boom := errors.New("insufficient funds")
	s.claimer = NewClaimer(s.checker, mockSender{err: boom, recorder: s.sent})
	claim := testClaim(0)

	next, err := s.claimer.Process(s.ctx, &claim)
	require.Nil(s.T(), next)
	require.ErrorIs(s.T(), err, ErrTransactionSend)
	require.ErrorIs(s.T(), err, boom)
	require.NotErrorIs(s.T(), err, ErrDuplicateCheck)
}
