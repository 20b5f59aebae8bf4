// Package mapping correlates mail senders with shops from the local
// replica. Matching runs in order of reliability: exact address, sender
// domain, fuzzy display name, and finally an AI pick over the candidate
// list.
package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mbeaupre/autoemail/internal/model"
	"github.com/mbeaupre/autoemail/internal/store"
)

// noMatchAnswer is the sentinel the AI returns when no shop fits.
const noMatchAnswer = "NO_MATCH"

// fuzzyThreshold is the minimum name-similarity ratio for a fuzzy match.
const fuzzyThreshold = 0.9

// freeMailDomains are providers whose domains never identify a shop.
var freeMailDomains = map[string]bool{
	"aol.com":        true,
	"gmail.com":      true,
	"gmx.com":        true,
	"hotmail.com":    true,
	"icloud.com":     true,
	"live.com":       true,
	"mac.com":        true,
	"mail.com":       true,
	"me.com":         true,
	"msn.com":        true,
	"outlook.com":    true,
	"protonmail.com": true,
	"yahoo.com":      true,
	"yandex.com":     true,
	"zoho.com":       true,
	"shopify.com":    true,
}

var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// AmbiguousDomainError reports that more than one shop claimed the
// sender's domain, so a domain match cannot be trusted.
type AmbiguousDomainError struct {
	Domain string
	Count  int
}

func (e *AmbiguousDomainError) Error() string {
	return fmt.Sprintf("mapping: %d shops match domain %s", e.Count, e.Domain)
}

// Prompter answers a free-form prompt. The AI client satisfies it.
type Prompter interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}

// Mapper resolves mail senders to shops. Load must run before any
// mapping call.
type Mapper struct {
	store  store.Store
	ai     Prompter
	logger *slog.Logger

	shops  []model.Shop
	owners map[int64]model.Owner
}

// NewMapper creates a Mapper over the replica store. The Prompter may
// be nil, which disables the AI fallback.
func NewMapper(s store.Store, ai Prompter, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{store: s, ai: ai, logger: logger}
}

// Load reads the shops and owners from the replica into memory.
func (m *Mapper) Load(ctx context.Context) error {
	shops, err := m.store.ListShops(ctx)
	if err != nil {
		return fmt.Errorf("loading shops: %w", err)
	}

	owners, err := m.store.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("loading owners: %w", err)
	}

	m.shops = shops
	m.owners = make(map[int64]model.Owner, len(owners))
	for _, owner := range owners {
		m.owners[owner.ID] = owner
	}

	m.logger.Info("store replica loaded",
		slog.Int("shops", len(shops)),
		slog.Int("owners", len(owners)),
	)
	return nil
}

// Ready reports whether the replica has been loaded with any shops.
func (m *Mapper) Ready() bool {
	return len(m.shops) > 0
}

// MapSenderToShop attempts to map a message's sender to a shop. A nil
// shop with a nil error means no method produced a match.
func (m *Mapper) MapSenderToShop(ctx context.Context, msg *model.EmailMessage) (*model.Shop, error) {
	if shop := m.findByExactEmail(msg.From.Address); shop != nil {
		return shop, nil
	}

	shop, err := m.findByDomain(msg.From.Address)
	if err != nil {
		return nil, err
	}
	if shop != nil {
		return shop, nil
	}

	if msg.From.Name != "" {
		if shop := m.findByFuzzyName(msg.From.Name); shop != nil {
			return shop, nil
		}
	}

	if m.ai == nil {
		return nil, nil
	}
	return m.findByAI(ctx, msg)
}

// findByExactEmail matches the sender address against the shop's own
// address first, then its customer-facing address.
func (m *Mapper) findByExactEmail(address string) *model.Shop {
	for i := range m.shops {
		if m.shops[i].Email == address {
			return &m.shops[i]
		}
	}
	for i := range m.shops {
		if m.shops[i].CustomerEmail == address {
			return &m.shops[i]
		}
	}
	return nil
}

// findByDomain matches on the sender's domain, skipping free-mail
// providers. More than one match is an error rather than a guess.
func (m *Mapper) findByDomain(address string) (*model.Shop, error) {
	_, domain, ok := strings.Cut(address, "@")
	if !ok || domain == "" {
		return nil, nil
	}
	domain = strings.ToLower(domain)

	if freeMailDomains[domain] {
		return nil, nil
	}

	var matches []*model.Shop
	for i := range m.shops {
		if strings.Contains(m.shops[i].Domain, domain) {
			matches = append(matches, &m.shops[i])
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, &AmbiguousDomainError{Domain: domain, Count: len(matches)}
	}
}

// findByFuzzyName picks the shop whose name is closest to the sender's
// display name, accepting it only above the similarity threshold.
func (m *Mapper) findByFuzzyName(name string) *model.Shop {
	var best *model.Shop
	bestRatio := 0.0

	for i := range m.shops {
		ratio := similarityRatio(m.shops[i].Name, name)
		if ratio > bestRatio {
			bestRatio = ratio
			best = &m.shops[i]
		}
	}

	if bestRatio < fuzzyThreshold {
		return nil
	}
	return best
}

// similarityRatio converts a Levenshtein distance into a 0..1 ratio of
// how much of the combined length the two strings share.
func similarityRatio(a, b string) float64 {
	totalLength := len(a) + len(b)
	if totalLength == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return float64(totalLength-distance) / float64(totalLength)
}

// findByAI asks the model to pick a shop id from the candidate list
// based on the message context. The model answers with an id or the
// no-match sentinel.
func (m *Mapper) findByAI(ctx context.Context, msg *model.EmailMessage) (*model.Shop, error) {
	answer, err := m.ai.Prompt(ctx, m.matchPrompt(msg))
	if err != nil {
		return nil, fmt.Errorf("ai store match: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == noMatchAnswer {
		return nil, nil
	}

	shopID := idSanitizer.ReplaceAllString(answer, "")
	for i := range m.shops {
		if strconv.FormatInt(m.shops[i].ID, 10) == shopID {
			m.logger.Info("sender matched by ai",
				slog.String("sender", msg.From.Address),
				slog.String("shop", m.shops[i].Name),
			)
			return &m.shops[i], nil
		}
	}

	m.logger.Warn("ai answered with unknown shop id",
		slog.String("sender", msg.From.Address),
		slog.String("answer", answer),
	)
	return nil, nil
}

// matchPrompt formats the candidate shops and the message context.
func (m *Mapper) matchPrompt(msg *model.EmailMessage) string {
	var sb strings.Builder

	sb.WriteString("You are helping to match an email sender to one of our stores.\n")
	if msg.From.Name != "" {
		fmt.Fprintf(&sb, "Email from: %s <%s>\n", msg.From.Name, msg.From.Address)
	} else {
		fmt.Fprintf(&sb, "Email from: <%s>\n", msg.From.Address)
	}
	fmt.Fprintf(&sb, "Email subject: %s\n", msg.Subject)
	fmt.Fprintf(&sb, "Email snippet: %s...\n\n", snippet(msg.TextBody, 200))

	sb.WriteString("Here is the list of potential store matches:\n")
	for i := range m.shops {
		shop := &m.shops[i]
		fmt.Fprintf(&sb,
			"ID: %d, Name: %s, Email: %s, Customer Email: %s, Shop Owner: %s, Domain: %s, Platform Domain: %s\n",
			shop.ID, shop.Name, shop.Email, shop.CustomerEmail,
			shop.ShopOwner, shop.Domain, shop.PlatformDomain,
		)
	}

	sb.WriteString("\nBased on the email, which store (if any) do you think this is from?\n")
	sb.WriteString("If you find a match, respond with ONLY the store ID.\n")
	fmt.Fprintf(&sb, "If there's no CLEAR match, respond with %q.\n", noMatchAnswer)

	return sb.String()
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// StoreInfoFor joins a shop with its owner into the context handed to
// the drafting prompt.
func (m *Mapper) StoreInfoFor(shop *model.Shop) (*model.StoreInfo, error) {
	owner, ok := m.owners[shop.OwnerID]
	if !ok {
		return nil, fmt.Errorf("owner %d not found for shop %s", shop.OwnerID, shop.Name)
	}

	syncMode := "Basic"
	if owner.SyncLevel > 0 {
		syncMode = "Full"
	}

	return &model.StoreInfo{
		Name:        shop.Name,
		Domain:      shop.Domain,
		SyncMode:    syncMode,
		Currency:    shop.Currency,
		CompanyName: owner.CompanyName,
		Email:       owner.Email,
	}, nil
}
