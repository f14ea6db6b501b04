package referral

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/logging"

	"github.com/shopspring/decimal"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeRandomLength = 6

// mobilePattern accepts an optional + and country prefix ahead of 9 to
// 15 digits.
var mobilePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// Store is the persistence surface the engine needs. *database.Repository
// satisfies it.
type Store interface {
	EnrollUser(ctx context.Context, user *database.User, commission decimal.Decimal) (*database.Referral, error)
	GetUserByReferralCode(ctx context.Context, code string) (*database.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	ActivateReferralSettings(ctx context.Context, settings *database.ReferralSettings) error
	GetActiveReferralSettings(ctx context.Context) (*database.ReferralSettings, error)
	GetReferralsBySponsor(ctx context.Context, sponsorID string) ([]database.Referral, error)
	CountReferralsBySponsor(ctx context.Context, sponsorID string) (int, error)
}

// SettingsCache caches the active commission settings. Implementations
// degrade gracefully; a miss or error just falls through to the store.
type SettingsCache interface {
	GetActiveSettings(ctx context.Context) (*database.ReferralSettings, bool)
	SetActiveSettings(ctx context.Context, settings *database.ReferralSettings)
	InvalidateSettings(ctx context.Context)
}

// Service is the referral and enrollment engine: it creates member
// accounts, resolves sponsors, records referral edges and pays direct
// commissions.
type Service struct {
	store  Store
	hasher PasswordHasher
	cache  SettingsCache // may be nil
	config Config
}

// NewService creates a new referral service. cache may be nil.
func NewService(store Store, hasher PasswordHasher, cache SettingsCache, config Config) *Service {
	if config.CodePrefix == "" {
		config.CodePrefix = DefaultConfig().CodePrefix
	}
	if config.DefaultDirectAmount.IsZero() {
		config.DefaultDirectAmount = DefaultConfig().DefaultDirectAmount
	}
	return &Service{
		store:  store,
		hasher: hasher,
		cache:  cache,
		config: config,
	}
}

// Enroll creates a new member account. When the claimed sponsor code
// resolves to an existing member, the referral edge and the sponsor's
// commission credit happen in the same transaction as the account
// insert; an unresolvable code is tolerated and simply skips the payout.
// Returns the new user and the created edge (nil when no sponsor).
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*database.User, *database.Referral, error) {
	if verr := s.validate(req); verr != nil {
		return nil, nil, verr
	}

	passwordHash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Resolve the claimed sponsor code. A code that matches nobody is a
	// policy-tolerated miss, not an error.
	var sponsor *database.User
	sponsorCode := strings.TrimSpace(req.SponsorCode)
	if sponsorCode != "" {
		sponsor, err = s.store.GetUserByReferralCode(ctx, sponsorCode)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve sponsor: %w", err)
		}
	}

	commission := decimal.Zero
	if sponsor != nil {
		commission = s.directAmount(ctx)
	}

	log := logging.EnrollmentContext(req.Email, sponsorCode)

	// The referral code is generated fresh and uniqueness is ultimately
	// enforced by the storage constraint; a collision between our check
	// and the insert just means another spin of the loop.
	for {
		code, err := s.GenerateCode(ctx)
		if err != nil {
			return nil, nil, err
		}

		user := &database.User{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Mobile:       req.Mobile,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			ReferralCode: code,
		}
		if sponsorCode != "" {
			user.SponsorCode = &sponsorCode
		}
		if sponsor != nil {
			user.SponsorID = &sponsor.ID
		}

		edge, err := s.store.EnrollUser(ctx, user, commission)
		if err != nil {
			switch database.UniqueConstraintName(err) {
			case "users_referral_code_key":
				continue // lost the race on the code, regenerate
			case "users_email_key":
				return nil, nil, ErrEmailExists
			case "users_mobile_key":
				return nil, nil, ErrMobileExists
			}
			return nil, nil, fmt.Errorf("failed to enroll user: %w", err)
		}

		if edge != nil {
			log.Info("Member enrolled with sponsor",
				"user_id", user.ID,
				"sponsor_id", edge.SponsorID,
				"commission", edge.CommissionEarned.String())
		} else {
			log.Info("Member enrolled", "user_id", user.ID)
		}

		return user, edge, nil
	}
}

// GenerateCode generates a fresh referral code: the configured prefix
// followed by six random uppercase alphanumerics. It retries until the
// code is unused; with 36^6 possibilities collisions are vanishingly
// rare, so the loop is effectively bounded.
func (s *Service) GenerateCode(ctx context.Context) (string, error) {
	for {
		code, err := randomCode(s.config.CodePrefix)
		if err != nil {
			return "", err
		}

		exists, err := s.store.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}

// randomCode draws each character uniformly from codeCharset. Bytes at
// or above the largest multiple of the charset size are discarded, so
// no character is overrepresented by the reduction.
func randomCode(prefix string) (string, error) {
	const limit = byte(len(codeCharset) * (256 / len(codeCharset)))

	var b strings.Builder
	b.WriteString(prefix)

	buf := make([]byte, 2*codeRandomLength)
	remaining := codeRandomLength
	for remaining > 0 {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		for _, v := range buf {
			if v >= limit {
				continue
			}
			b.WriteByte(codeCharset[int(v)%len(codeCharset)])
			remaining--
			if remaining == 0 {
				break
			}
		}
	}
	return b.String(), nil
}

// ActivatePolicy activates new commission settings, deactivating every
// previous row in the same transaction.
func (s *Service) ActivatePolicy(ctx context.Context, directAmount, matchingPct decimal.Decimal) (*database.ReferralSettings, error) {
	var messages []string
	if directAmount.IsNegative() {
		messages = append(messages, "direct referral amount must not be negative")
	}
	if matchingPct.IsNegative() || matchingPct.GreaterThan(decimal.NewFromInt(100)) {
		messages = append(messages, "matching income percentage must be between 0 and 100")
	}
	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}

	settings := &database.ReferralSettings{
		DirectReferralAmount:     directAmount.Round(2),
		MatchingIncomePercentage: matchingPct.Round(2),
	}

	// A concurrent activation can commit between our deactivate and
	// insert; the one-active index turns that into a unique violation,
	// and a fresh attempt deactivates the winner and takes over.
	const maxActivationAttempts = 3
	var err error
	for attempt := 0; attempt < maxActivationAttempts; attempt++ {
		err = s.store.ActivateReferralSettings(ctx, settings)
		if err == nil {
			break
		}
		if database.UniqueConstraintName(err) != "referral_settings_one_active" {
			return nil, err
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to activate settings: %w", err)
	}

	if s.cache != nil {
		s.cache.SetActiveSettings(ctx, settings)
	}

	logging.WithComponent("policy").Info("Commission settings activated",
		"direct_amount", settings.DirectReferralAmount.String(),
		"matching_pct", settings.MatchingIncomePercentage.String())

	return settings, nil
}

// GetActivePolicy returns the active commission settings, or nil when
// none has been activated.
func (s *Service) GetActivePolicy(ctx context.Context) (*database.ReferralSettings, error) {
	if s.cache != nil {
		if settings, ok := s.cache.GetActiveSettings(ctx); ok {
			return settings, nil
		}
	}

	settings, err := s.store.GetActiveReferralSettings(ctx)
	if err != nil {
		return nil, err
	}

	if settings != nil && s.cache != nil {
		s.cache.SetActiveSettings(ctx, settings)
	}

	return settings, nil
}

// Team returns a sponsor's direct downline edges
func (s *Service) Team(ctx context.Context, sponsorID string) ([]database.Referral, error) {
	return s.store.GetReferralsBySponsor(ctx, sponsorID)
}

// TeamSize returns the number of members a sponsor has directly referred
func (s *Service) TeamSize(ctx context.Context, sponsorID string) (int, error) {
	return s.store.CountReferralsBySponsor(ctx, sponsorID)
}

// directAmount resolves the commission to pay for a direct referral:
// the active settings when present, the configured default otherwise.
func (s *Service) directAmount(ctx context.Context) decimal.Decimal {
	settings, err := s.GetActivePolicy(ctx)
	if err != nil {
		logging.WithComponent("policy").WithError(err).Warn("Failed to load active settings, using default")
		return s.config.DefaultDirectAmount
	}
	if settings == nil {
		return s.config.DefaultDirectAmount
	}
	return settings.DirectReferralAmount
}

func (s *Service) validate(req EnrollRequest) *ValidationError {
	var messages []string

	email := strings.TrimSpace(req.Email)
	if email == "" {
		messages = append(messages, "email is required")
	} else if !strings.Contains(email, "@") {
		messages = append(messages, "email is not valid")
	}

	if req.Mobile != nil {
		mobile := strings.TrimSpace(*req.Mobile)
		if !mobilePattern.MatchString(mobile) {
			messages = append(messages, "mobile number must be entered in the format '+999999999', with 9 to 15 digits")
		}
	}

	if strings.TrimSpace(req.FirstName) == "" {
		messages = append(messages, "first name is required")
	}

	if err := s.hasher.ValidatePasswordStrength(req.Password); err != nil {
		messages = append(messages, err.Error())
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}
