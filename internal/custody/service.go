// Package custody orchestrates the (3,5)-threshold custody protocol:
// generating a secp256k1 key split three ways across a vault, a database
// row, and a client-held share; granting additional client shares by
// resharing without ever reconstructing the key; revoking shares; and
// transiently reconstructing the key to sign an Ethereum personal message.
package custody

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luxfi/kms/internal/ethkey"
	"github.com/luxfi/kms/internal/secretstore"
	"github.com/luxfi/kms/internal/store"
	"github.com/luxfi/kms/pkg/digest"
	"github.com/luxfi/kms/pkg/field"
	"github.com/luxfi/kms/pkg/polynomial"
	"github.com/luxfi/kms/pkg/random"
)

const (
	totalShares     = 5
	threshold       = 3
	slotNameLength  = 8
	actionGenerate  = "generate_key"
	actionGrant     = "grant"
	actionRevoke    = "revoke"
	actionSignature = "sign_message"
)

// Service wires the database, the vault-side secret store, and the signing
// primitives behind the generate/grant/revoke/sign operations.
type Service struct {
	db      *store.Store
	secrets *secretstore.Store
	log     *zap.Logger
}

// New builds a Service from its collaborators.
func New(db *store.Store, secrets *secretstore.Store, log *zap.Logger) *Service {
	return &Service{db: db, secrets: secrets, log: log}
}

// CreateUser mints a fresh opaque master-key credential and stores its
// digest, returning the raw credential for the caller to keep — it is never
// persisted or logged in the clear.
func (s *Service) CreateUser(ctx context.Context) (string, error) {
	code, err := random.Alphanumeric(slotNameLength)
	if err != nil {
		return "", wrap(KindDbErr, fmt.Errorf("generate credential: %w", err))
	}
	if _, err := s.db.CreateUser(ctx, digest.Of(code)); err != nil {
		return "", wrap(KindDbErr, err)
	}
	return code, nil
}

// GenerateResult is the outcome of Generate and Grant: a new client-held
// share, base64 encoded, and the database ID identifying it.
type GenerateResult struct {
	Key     string
	ShareID uuid.UUID
}

// Generate mints a new secp256k1 key, splits it 3-of-5, stores one share in
// the vault and one share in the database row, and returns the third share
// to the caller.
func (s *Service) Generate(ctx context.Context, masterKey string) (GenerateResult, error) {
	user, err := s.authenticate(ctx, masterKey)
	if err != nil {
		return GenerateResult{}, err
	}

	privateKey, err := random.Bytes(32)
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, fmt.Errorf("generate private key: %w", err))
	}

	address, err := ethkey.AddressFromPrivateKey(privateKey)
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, fmt.Errorf("derive address: %w", err))
	}

	secret := field.FromBig(new(big.Int).SetBytes(privateKey))
	shares, err := polynomial.GenerateShares(secret, totalShares, threshold)
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, fmt.Errorf("generate shares: %w", err))
	}

	slot, err := random.Alphanumeric(slotNameLength)
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, fmt.Errorf("generate slot: %w", err))
	}
	if err := s.secrets.Put(ctx, slot, shares[0].ToStore()); err != nil {
		return GenerateResult{}, wrap(KindStorage, err)
	}

	// local_index must carry shares[1]'s x-coordinate, not its y-value,
	// or reconstruction recombines the wrong pair of coordinates.
	key, err := s.db.CreateKey(ctx, store.CreateKeyParams{
		UserID:     user.ID,
		LocalKey:   shares[1].Y.HexBytes(),
		LocalIndex: shares[1].X.HexBytes(),
		CloudKey:   slot,
		Address:    address,
	})
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, err)
	}

	clientShare := shares[2]
	dbShare, err := s.db.CreateShare(ctx, store.CreateShareParams{
		KeyID:     key.ID,
		Secret:    digest.Of(clientShare.Y.HexBytes()),
		UserIndex: clientShare.X.HexBytes(),
		Owner:     store.ShareOwnerAdmin,
	})
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, err)
	}

	s.logAction(ctx, key.ID, actionGenerate, map[string]any{"user_id": user.ID}, nil)

	encoded, err := encodeShareValue(clientShare.Y)
	if err != nil {
		return GenerateResult{}, wrap(KindBigIntParse, err)
	}
	return GenerateResult{Key: encoded, ShareID: dbShare.ID}, nil
}

// Grant reshares an existing key at a fresh evaluation point, producing a
// new client-held share without ever reconstructing the private key.
func (s *Service) Grant(ctx context.Context, masterKey, secretKey string) (GenerateResult, error) {
	user, err := s.authenticate(ctx, masterKey)
	if err != nil {
		return GenerateResult{}, err
	}

	presented, err := decodeShareValue(secretKey)
	if err != nil {
		return GenerateResult{}, wrap(KindDecodeError, err)
	}

	existingShare, err := s.db.GetShareBySecret(ctx, digest.Of(presented))
	if err != nil {
		return GenerateResult{}, storeErrToCustody(err)
	}
	if existingShare.Status != store.ShareStatusGranted {
		return GenerateResult{}, wrap(KindRevoked, nil)
	}

	key, err := s.db.GetKeyByID(ctx, existingShare.KeyID)
	if err != nil {
		return GenerateResult{}, storeErrToCustody(err)
	}
	if key.UserID != user.ID {
		return GenerateResult{}, wrap(KindUnauthorized, nil)
	}

	shares, err := s.assembleShares(ctx, key, existingShare, presented)
	if err != nil {
		return GenerateResult{}, err
	}

	newShare, err := polynomial.AddShare(shares)
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, fmt.Errorf("reshare: %w", err))
	}

	dbShare, err := s.db.CreateShare(ctx, store.CreateShareParams{
		KeyID:     key.ID,
		Secret:    digest.Of(newShare.Y.HexBytes()),
		UserIndex: newShare.X.HexBytes(),
		Owner:     store.ShareOwnerGuest,
	})
	if err != nil {
		return GenerateResult{}, wrap(KindDbErr, err)
	}

	s.logAction(ctx, key.ID, actionGrant, map[string]any{
		"user_id":  user.ID,
		"share_id": dbShare.ID,
	}, nil)

	encoded, err := encodeShareValue(newShare.Y)
	if err != nil {
		return GenerateResult{}, wrap(KindBigIntParse, err)
	}
	return GenerateResult{Key: encoded, ShareID: dbShare.ID}, nil
}

// Revoke marks a client-held share unusable for future signing or
// resharing.
func (s *Service) Revoke(ctx context.Context, masterKey string, shareID uuid.UUID) error {
	user, err := s.authenticate(ctx, masterKey)
	if err != nil {
		return err
	}

	share, err := s.db.GetShareByID(ctx, shareID)
	if err != nil {
		return storeErrToCustody(err)
	}
	key, err := s.db.GetKeyByID(ctx, share.KeyID)
	if err != nil {
		return storeErrToCustody(err)
	}
	if key.UserID != user.ID {
		return wrap(KindUnauthorized, nil)
	}

	if _, err := s.db.RevokeShareByID(ctx, share.ID); err != nil {
		return storeErrToCustody(err)
	}

	s.logAction(ctx, key.ID, actionRevoke, map[string]any{
		"user_id":  user.ID,
		"share_id": share.ID,
	}, nil)
	return nil
}

// SignMessage transiently reconstructs the private key for the key backing
// secretKey's share and produces an Ethereum personal-message signature.
// The private key never touches storage or a log line.
func (s *Service) SignMessage(ctx context.Context, secretKey, message string) (string, error) {
	presented, err := decodeShareValue(secretKey)
	if err != nil {
		return "", wrap(KindDecodeError, err)
	}

	clientShare, err := s.db.GetShareBySecret(ctx, digest.Of(presented))
	if err != nil {
		return "", signMessageStoreErr(err)
	}
	if clientShare.Status != store.ShareStatusGranted {
		return "", wrap(KindRevoked, nil)
	}

	key, err := s.db.GetKeyByID(ctx, clientShare.KeyID)
	if err != nil {
		return "", signMessageStoreErr(err)
	}

	shares, err := s.assembleShares(ctx, key, clientShare, presented)
	if err != nil {
		return "", err
	}

	secret, err := polynomial.ReconstructSecret(shares)
	if err != nil {
		return "", wrap(KindDbErr, fmt.Errorf("reconstruct: %w", err))
	}

	signature, err := ethkey.SignPersonalMessage(secret.Bytes(), []byte(message))
	if err != nil {
		return "", wrap(KindDbErr, fmt.Errorf("sign: %w", err))
	}

	s.logAction(ctx, key.ID, actionSignature, map[string]any{
		"share_id": clientShare.ID,
	}, &message)

	return hex.EncodeToString(signature), nil
}

// Logs returns the audit trail for a key, scoped to its owning user.
func (s *Service) Logs(ctx context.Context, masterKey string, keyID uuid.UUID) ([]store.Log, error) {
	user, err := s.authenticate(ctx, masterKey)
	if err != nil {
		return nil, err
	}

	key, err := s.db.GetKeyByID(ctx, keyID)
	if err != nil {
		return nil, storeErrToCustody(err)
	}
	if key.UserID != user.ID {
		return nil, wrap(KindUnauthorized, nil)
	}

	logs, err := s.db.GetLogsByKeyID(ctx, keyID)
	if err != nil {
		return nil, wrap(KindDbErr, err)
	}
	return logs, nil
}

// authenticate resolves a master-key credential to its user. A credential
// miss is reported as Unauthorized, not NotFound — the request surface maps
// the two differently (401 vs 404) precisely so a caller can't distinguish
// "bad credential" from "credential doesn't exist" by probing.
func (s *Service) authenticate(ctx context.Context, masterKey string) (store.User, error) {
	user, err := s.db.GetUserBySecret(ctx, digest.Of(masterKey))
	if err == store.ErrNotFound {
		return store.User{}, wrap(KindUnauthorized, err)
	}
	if err != nil {
		return store.User{}, wrap(KindDbErr, err)
	}
	return user, nil
}

// assembleShares rebuilds the three points on the custody polynomial: the
// vault-held share, the database row's share, and the client-presented
// share, in that order.
func (s *Service) assembleShares(ctx context.Context, key store.Key, clientShare store.Share, presentedY string) ([]polynomial.Share, error) {
	cloudShareStore, err := s.secrets.Get(ctx, key.CloudKey)
	if err != nil {
		return nil, wrap(KindStorage, err)
	}
	cloudShare, err := polynomial.FromStore(cloudShareStore)
	if err != nil {
		return nil, wrap(KindBigIntParse, err)
	}

	localShare, err := polynomial.FromStore(polynomial.ShareStore{X: key.LocalIndex, Y: key.LocalKey})
	if err != nil {
		return nil, wrap(KindBigIntParse, err)
	}

	clientPoint, err := polynomial.FromStore(polynomial.ShareStore{X: clientShare.UserIndex, Y: presentedY})
	if err != nil {
		return nil, wrap(KindBigIntParse, err)
	}

	return []polynomial.Share{cloudShare, localShare, clientPoint}, nil
}

// logAction appends the state-changing operation to the audit log. Failures
// are logged operationally but never fail the request: the caller's custody
// operation has already durably succeeded by the time this runs.
func (s *Service) logAction(ctx context.Context, keyID uuid.UUID, action string, data map[string]any, message *string) {
	log := s.loggerFrom(ctx).With(zap.String("key_id", keyID.String()))
	if shareID, ok := data["share_id"]; ok {
		log = log.With(zap.Any("share_id", shareID))
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		log.Warn("failed to encode audit log payload", zap.String("action", action), zap.Error(err))
		return
	}
	if _, err := s.db.CreateLog(ctx, store.CreateLogParams{
		KeyID:   keyID,
		Action:  action,
		Data:    encoded,
		Message: message,
	}); err != nil {
		log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return
	}
	log.Info("custody operation recorded", zap.String("action", action))
}

// encodeShareValue renders a share's y-coordinate the way it is handed to a
// client: the raw bytes behind its hex representation, base64 encoded.
func encodeShareValue(y field.Element) (string, error) {
	raw, err := hex.DecodeString(y.HexBytes())
	if err != nil {
		return "", fmt.Errorf("encode share value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeShareValue undoes encodeShareValue: base64 decode, then hex-encode
// the resulting bytes back to the canonical form shares are digested and
// compared in.
func decodeShareValue(presented string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(presented)
	if err != nil {
		return "", fmt.Errorf("decode share value: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func storeErrToCustody(err error) error {
	if err == store.ErrNotFound {
		return wrap(KindNotFound, err)
	}
	return wrap(KindDbErr, err)
}

// signMessageStoreErr maps a share/key lookup failure during SignMessage.
// Unlike the admin-scoped lookups in Grant/Revoke/Logs, sign_message's
// documented failure surface is 400 (revoked or malformed) / 500 only — no
// 401/404 is reachable (spec.md §6). An unrecognized secret key is reported
// as a decode failure rather than NotFound so it maps to 400, not 404.
func signMessageStoreErr(err error) error {
	if err == store.ErrNotFound {
		return wrap(KindDecodeError, err)
	}
	return wrap(KindDbErr, err)
}
