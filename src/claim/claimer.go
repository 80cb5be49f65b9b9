package claim

import (
	"context"
	"fmt"

	"github.com/warp-contracts/claimer/src/utils/logger"
	"github.com/warp-contracts/claimer/src/utils/model"
)

// Submits claims. Process returns the claimer that should be used for the next claim,
// the receiver is left untouched.
type Claimer interface {
	Process(ctx context.Context, claim *model.Claim) (Claimer, error)
}

// Tells if the claim has already been submitted
type DuplicateChecker interface {
	IsDuplicated(ctx context.Context, claim *model.Claim) (bool, error)
}

// Submits a claim on-chain. Returns the sender that should be used for the next claim.
type TransactionSender interface {
	Send(ctx context.Context, claim *model.Claim) (TransactionSender, error)
}

// Checks for duplicates and sends whatever wasn't submitted yet
type DefaultClaimer struct {
	checker DuplicateChecker
	sender  TransactionSender
}

func NewClaimer(checker DuplicateChecker, sender TransactionSender) DefaultClaimer {
	return DefaultClaimer{
		checker: checker,
		sender:  sender,
	}
}

func (self DefaultClaimer) Process(ctx context.Context, claim *model.Claim) (Claimer, error) {
	log := logger.NewSublogger("claimer").
		WithField("dapp", claim.DAppAddress.Hex()).
		WithField("epoch", claim.EpochIndex)

	isDuplicated, err := self.checker.IsDuplicated(ctx, claim)
	if err != nil {
		log.WithError(err).Error("Failed to check if claim is duplicated")
		return nil, fmt.Errorf("%w: %w", ErrDuplicateCheck, err)
	}

	if isDuplicated {
		log.Debug("Claim already submitted, skipping")
		return self, nil
	}

	log.WithField("hash", claim.EpochHash.Hex()).Info("Sending claim")

	sender, err := self.sender.Send(ctx, claim)
	if err != nil {
		log.WithError(err).Error("Failed to send claim")
		return nil, fmt.Errorf("%w: %w", ErrTransactionSend, err)
	}

	log.Info("Claim sent")

	self.sender = sender
	return self, nil
}
