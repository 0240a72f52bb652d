// Package actions implements the wallet operations exposed to the agent:
// native transfers, token swaps, explorer search and balance queries.
package actions

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/plugin-lightlink/internal/ens"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/events"
	"github.com/lightlink-network/plugin-lightlink/internal/explorer"
	"github.com/lightlink-network/plugin-lightlink/internal/wallet"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

// NameResolver turns ENS names into addresses.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (common.Address, error)
}

// Searcher runs explorer searches for one chain.
type Searcher interface {
	Search(ctx context.Context, query string) ([]explorer.Item, error)
}

// SearcherFactory builds a Searcher for a chain.
type SearcherFactory func(chain web3.ChainDescriptor) (Searcher, error)

// Service runs actions on behalf of one wallet.
type Service struct {
	wallet    *wallet.Wallet
	resolver  NameResolver
	searchers SearcherFactory
	publisher events.Publisher
	now       func() time.Time
	log       *slog.Logger
	audit     *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithResolver replaces the mainnet ENS resolver.
func WithResolver(r NameResolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithSearchers replaces the Blockscout explorer client factory.
func WithSearchers(f SearcherFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.searchers = f
		}
	}
}

// WithPublisher sets where transaction events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock sets the clock used for swap deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAuditLogger sets the logger that records funds-moving actions.
func WithAuditLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.audit = l
		}
	}
}

// NewService binds actions to w.
func NewService(w *wallet.Wallet, opts ...Option) *Service {
	s := &Service{
		wallet: w,
		searchers: func(chain web3.ChainDescriptor) (Searcher, error) {
			return explorer.ForChain(chain)
		},
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("actions")
	}
	if s.audit == nil {
		s.audit = logger.Audit()
	}
	if s.resolver == nil {
		s.resolver = defaultResolver(w, s.log)
	}
	return s
}

// Wallet returns the wallet the service acts for.
func (s *Service) Wallet() *wallet.Wallet {
	return s.wallet
}

// Close releases the event publisher.
func (s *Service) Close() error {
	return s.publisher.Close()
}

func defaultResolver(w *wallet.Wallet, log *slog.Logger) NameResolver {
	mainnet, err := w.Catalog().Lookup(string(web3.ChainEthereum))
	if err != nil {
		return unsupportedResolver{}
	}
	return ens.NewResolver(mainnet, w.Dialer(), ens.WithLogger(log))
}

type unsupportedResolver struct{}

func (unsupportedResolver) Resolve(_ context.Context, name string) (common.Address, error) {
	return common.Address{}, apperrors.Newf(apperrors.CodeUnsupported, "cannot resolve %s: no ens chain configured", name)
}

// resolveAddress accepts a 0x address or an ENS name.
func (s *Service) resolveAddress(ctx context.Context, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "0x") {
		if !common.IsHexAddress(input) {
			return common.Address{}, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid address: %s", input)
		}
		return common.HexToAddress(input), nil
	}
	return s.resolver.Resolve(ctx, input)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "publish transaction event failed",
			slog.String("event_id", event.ID),
			slog.String("kind", string(event.Kind)),
			slog.String("code", string(apperrors.CodeOf(err))),
			slog.Any("error", err))
	}
}

// wrap prefixes err with message while keeping its code.
func wrap(err error, fallback apperrors.Code, message string) error {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		code = fallback
	}
	return apperrors.Wrap(code, err, message)
}
