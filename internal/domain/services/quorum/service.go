package quorum

import (
	"context"
	"crypto/subtle"
	"encoding/hex"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

// ValidatorSet exposes the validator views quorum checking needs
type ValidatorSet interface {
	GetValidator(ctx context.Context, address string) (*entities.Validator, error)
	TotalVotingPower() decimal.Decimal
}

// Config carries the quorum parameters
type Config struct {
	// ThresholdBps is the voting-power share required for execution,
	// in basis points of the total active power.
	ThresholdBps int64
	// MinSignatures is the floor on distinct signers, independent of the
	// power they carry.
	MinSignatures int
}

// Service verifies attestation bundles against the active validator set.
// Each attestation is a keyed blake2b-256 MAC over the transaction ID,
// keyed by the signer's address.
type Service struct {
	validators ValidatorSet
	cfg        Config
	logger     *zap.Logger
}

func NewService(validators ValidatorSet, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		validators: validators,
		cfg:        cfg,
		logger:     logger,
	}
}

// Attest computes the attestation a validator produces for a transaction
func Attest(txID, signer string) string {
	h, _ := blake2b.New256(signerKey(signer))
	h.Write([]byte(txID))
	return hex.EncodeToString(h.Sum(nil))
}

// blake2b keys are capped at 64 bytes; longer addresses are pre-hashed
func signerKey(signer string) []byte {
	if len(signer) <= 64 {
		return []byte(signer)
	}
	sum := blake2b.Sum256([]byte(signer))
	return sum[:]
}

// Verify checks a signature bundle for a transaction. Signatures and
// signers are positional pairs. Duplicate signers count once; a bundle
// carrying an unknown or inactive signer is rejected outright. Returns
// the collected power.
func (s *Service) Verify(ctx context.Context, txID string, signatures, signers []string) (decimal.Decimal, error) {
	if len(signatures) != len(signers) {
		return decimal.Zero, domainerrors.ValidationError("signatures", "signatures and signers must pair up")
	}

	total := s.validators.TotalVotingPower()
	required := total.
		Mul(decimal.NewFromInt(s.cfg.ThresholdBps)).
		Div(decimal.NewFromInt(10000))

	collected := decimal.Zero
	seen := make(map[string]bool, len(signers))
	for i, signer := range signers {
		if seen[signer] {
			continue
		}
		seen[signer] = true

		v, err := s.validators.GetValidator(ctx, signer)
		if err != nil {
			if domainerrors.IsNotFound(err) {
				return decimal.Zero, domainerrors.NewDomainError(domainerrors.ErrInvalidSignature,
					"UNKNOWN_SIGNER", "signer is not a registered validator").WithDetails(map[string]interface{}{
					"signer": signer,
				})
			}
			return decimal.Zero, err
		}
		if !v.Active {
			return decimal.Zero, domainerrors.NewDomainError(domainerrors.ErrValidatorNotActive,
				"SIGNER_NOT_ACTIVE", "signer is not in the active validator set").WithDetails(map[string]interface{}{
				"signer": signer,
			})
		}

		expected := Attest(txID, signer)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(signatures[i])) != 1 {
			return decimal.Zero, domainerrors.NewDomainError(domainerrors.ErrInvalidSignature,
				"INVALID_SIGNATURE", "attestation failed verification").WithDetails(map[string]interface{}{
				"signer": signer,
			})
		}

		collected = collected.Add(v.VotingPower)
	}

	if len(seen) < s.cfg.MinSignatures {
		return collected, domainerrors.QuorumNotReachedError(collected.String(), required.String()).
			WithDetails(map[string]interface{}{
				"signers":        len(seen),
				"min_signatures": s.cfg.MinSignatures,
			})
	}

	if total.IsZero() || collected.LessThan(required) {
		s.logger.Warn("Quorum not reached",
			zap.String("tx_id", txID),
			zap.String("collected", collected.String()),
			zap.String("required", required.String()))
		return collected, domainerrors.QuorumNotReachedError(collected.String(), required.String())
	}

	return collected, nil
}
