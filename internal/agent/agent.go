package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/lightlink-network/plugin-lightlink/internal/actions"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/wallet"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
	"github.com/lightlink-network/plugin-lightlink/pkg/plugin"
)

const (
	// PluginName 是智能体运行时注册插件所用的标识。
	PluginName = "lightlink"
	// PluginDescription 由智能体运行时展示。
	PluginDescription = "Lightlink blockchain integration plugin"

	// SettingPrivateKey 是携带钱包私钥的运行时配置项。
	SettingPrivateKey = "EVM_PRIVATE_KEY"
)

// ErrUnknownAction 表示名称与任何动作或别名都不匹配。
var ErrUnknownAction = apperrors.New(apperrors.CodeNotFound, "unknown action")

// Result 描述动作返回给智能体运行时的结果。
type Result struct {
	Success bool           `json:"success"`
	Text    string         `json:"text"`
	Content map[string]any `json:"content,omitempty"`
}

type handler func(ctx context.Context, raw json.RawMessage) (Result, error)

// Action 表示插件提供的一个具名操作。
type Action struct {
	plugin.ActionInfo
	run handler
}

// Plugin 将钱包动作接入智能体运行时。
type Plugin struct {
	service *actions.Service
	actions []Action
	index   map[string]int
	version string
	log     *slog.Logger
}

// Option 定义插件的可选配置。
type Option func(*Plugin)

// WithLogger 指定插件日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.log = l
		}
	}
}

// WithVersion 指定 Info 中报告的版本号。
func WithVersion(v string) Option {
	return func(p *Plugin) {
		p.version = v
	}
}

// New 基于动作服务构建插件。
func New(service *actions.Service, opts ...Option) *Plugin {
	p := &Plugin{service: service}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.log == nil {
		p.log = logger.Named("agent")
	}

	p.actions = []Action{
		{
			ActionInfo: plugin.ActionInfo{
				Name:        "transfer",
				Description: "Transfer tokens between addresses on the same chain",
				Similes:     []string{"SEND_TOKENS", "TOKEN_TRANSFER", "MOVE_TOKENS"},
			},
			run: p.transfer,
		},
		{
			ActionInfo: plugin.ActionInfo{
				Name:        "swap",
				Description: "Swap tokens on the same chain",
				Similes:     []string{"TOKEN_SWAP", "EXCHANGE_TOKENS", "TRADE_TOKENS"},
			},
			run: p.swap,
		},
		{
			ActionInfo: plugin.ActionInfo{
				Name:        "search",
				Description: "Search block explorer for a specific address, token, or transaction",
				Similes:     []string{"SEARCH_BLOCKCHAIN", "SEARCH_ADDRESS", "SEARCH_TOKEN"},
			},
			run: p.search,
		},
		{
			ActionInfo: plugin.ActionInfo{
				Name:        "balance",
				Description: "Get the balance for an address and a specific token",
				Similes:     []string{"GET_BALANCE", "GET_TOKEN_BALANCE"},
			},
			run: p.balance,
		},
	}
	p.index = make(map[string]int)
	for i, a := range p.actions {
		p.index[strings.ToLower(a.Name)] = i
		for _, simile := range a.Similes {
			p.index[strings.ToLower(simile)] = i
		}
	}
	return p
}

// Info 实现 plugin.Plugin。
func (p *Plugin) Info() plugin.Info {
	info := plugin.Info{
		ID:          PluginName,
		Name:        PluginName,
		Description: PluginDescription,
		Version:     p.version,
		Providers:   []string{"wallet"},
	}
	for _, a := range p.actions {
		info.Actions = append(info.Actions, a.ActionInfo)
	}
	return info
}

// Configure 实现 plugin.Plugin。若提供私钥配置，则必须通过 Validate；
// 由助记词或 keystore 构建的钱包不携带私钥配置。
func (p *Plugin) Configure(settings plugin.Settings) error {
	if settings.Get(SettingPrivateKey) == "" {
		return nil
	}
	if !Validate(settings) {
		return apperrors.New(apperrors.CodeConfiguration, "EVM_PRIVATE_KEY must start with 0x")
	}
	return nil
}

// Start 实现 plugin.Plugin。
func (p *Plugin) Start(ctx context.Context) error {
	w := p.service.Wallet()
	p.log.InfoContext(ctx, "plugin started",
		slog.String("address", w.Address().Hex()),
		slog.String("chain", w.CurrentChainName()),
		slog.Any("chains", w.Chains()))
	return nil
}

// Stop 实现 plugin.Plugin。
func (p *Plugin) Stop(ctx context.Context) error {
	p.log.InfoContext(ctx, "plugin stopped")
	return p.service.Close()
}

// Validate 判断运行时配置是否携带可用的私钥。
func Validate(settings plugin.Settings) bool {
	return strings.HasPrefix(settings.Get(SettingPrivateKey), "0x")
}

// Wallet 返回插件所代理的钱包。
func (p *Plugin) Wallet() *wallet.Wallet {
	return p.service.Wallet()
}

// Actions 按注册顺序列出插件动作。
func (p *Plugin) Actions() []plugin.ActionInfo {
	out := make([]plugin.ActionInfo, 0, len(p.actions))
	for _, a := range p.actions {
		out = append(out, a.ActionInfo)
	}
	return out
}

// Lookup 按名称或别名查找动作，忽略大小写。
func (p *Plugin) Lookup(name string) (plugin.ActionInfo, bool) {
	i, ok := p.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return plugin.ActionInfo{}, false
	}
	return p.actions[i].ActionInfo, true
}

// Names 返回 Dispatch 接受的全部名称与别名，已排序。
func (p *Plugin) Names() []string {
	names := make([]string, 0, len(p.index))
	for _, a := range p.actions {
		names = append(names, a.Name)
		names = append(names, a.Similes...)
	}
	sort.Strings(names)
	return names
}

// Dispatch 将 raw 解码为指定动作的参数并执行。未知名称返回 NOT_FOUND，
// 参数无法解码返回 INVALID_ARGUMENT；动作本身的失败以 Success 为 false 的
// Result 返回。
func (p *Plugin) Dispatch(ctx context.Context, name string, raw json.RawMessage) (Result, error) {
	i, ok := p.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Result{}, apperrors.Newf(apperrors.CodeNotFound, "unknown action: %s", name)
	}
	action := p.actions[i]
	result, err := action.run(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	level := slog.LevelInfo
	if !result.Success {
		level = slog.LevelWarn
	}
	p.log.Log(ctx, level, "action finished",
		slog.String("action", action.Name),
		slog.Bool("success", result.Success))
	return result, nil
}

func decode(raw json.RawMessage, action string, into any) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, err, "decode "+action+" params",
			apperrors.WithMetadata("action", action))
	}
	return nil
}
