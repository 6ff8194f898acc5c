package engine

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/types"
)

// OperationType tags where a provisioning request came from.
type OperationType string

const (
	OpConfigLoad     OperationType = "config_load"
	OpMidSessionAdd  OperationType = "mid_session_add"
	OpAdhocBar       OperationType = "adhoc_bar"
	OpAdhocIndicator OperationType = "adhoc_indicator"
)

// provisioning step names; add_interval carries its interval as a suffix
const (
	stepCreateSymbol      = "create_symbol"
	stepUpgradeSymbol     = "upgrade_symbol"
	stepAddInterval       = "add_interval_" // + interval
	stepLoadHistorical    = "load_historical"
	stepLoadSession       = "load_session"
	stepRegisterIndicator = "register_indicator"
	stepComputeWarmup     = "compute_warmup"
	stepComputeQuality    = "compute_quality"
)

// ProvisioningRequirements is the Phase A record for one symbol: what the
// addition needs and the ordered steps Phase C will execute.
type ProvisioningRequirements struct {
	Operation OperationType
	Source    string
	Symbol    string

	RequiredIntervals []types.Interval
	BaseInterval      types.Interval

	NeedsHistorical bool
	HistoricalDays  int

	IndicatorConfigs []indicator.Config

	Steps []string

	MeetsSessionConfigRequirements bool
	AddedBy                        session.AddedBy

	// upgrade is set during validation when the symbol already exists as
	// adhoc and a full add was requested.
	upgrade bool
}

// ValidationError carries the per-symbol Phase B failure reason surfaced on
// SymbolFailed events.
type ValidationError struct {
	Symbol string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Symbol + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return types.ErrValidationFailed }

// ProvisioningExecutor runs the three-phase add pattern (requirement
// analysis, validation, provisioning+loading) shared by pre-session config
// loading and mid-session additions.
type ProvisioningExecutor struct {
	Data   *session.SessionData
	Source types.DataSource
	Time   types.TimeService

	// LoadSession fills the coordinator's queue for (symbol, interval) with
	// the session day's bars. Set by the coordinator.
	LoadSession func(ctx context.Context, symbol string, interval types.Interval) error

	// QualityForHistorical computes the historical quality score for an
	// interval. Set by the coordinator to the quality manager's routine.
	QualityForHistorical func(symbol string, interval types.Interval, histStart, histEnd time.Time) float64
}

// AnalyzeFull builds the Phase A record for a full (config or mid-session)
// symbol add from the stream requirements.
func (e *ProvisioningExecutor) AnalyzeFull(op OperationType, symbol string, req *StreamRequirements, indicators []indicator.Config, addedBy session.AddedBy, historicalDays int) ProvisioningRequirements {
	pr := ProvisioningRequirements{
		Operation:                      op,
		Source:                         string(addedBy),
		Symbol:                         symbol,
		RequiredIntervals:              req.RequiredIntervals(),
		BaseInterval:                   req.BaseInterval,
		HistoricalDays:                 historicalDays,
		NeedsHistorical:                historicalDays > 0,
		IndicatorConfigs:               indicators,
		MeetsSessionConfigRequirements: true,
		AddedBy:                        addedBy,
	}
	if d := req.MaxLookbackDays(); d > pr.HistoricalDays {
		pr.HistoricalDays = d
		pr.NeedsHistorical = true
	}

	pr.Steps = append(pr.Steps, stepCreateSymbol)
	for _, interval := range req.DerivableIntervals {
		pr.Steps = append(pr.Steps, stepAddInterval+interval.String())
	}
	if pr.NeedsHistorical {
		pr.Steps = append(pr.Steps, stepLoadHistorical)
	}
	pr.Steps = append(pr.Steps, stepLoadSession)
	if len(indicators) > 0 {
		pr.Steps = append(pr.Steps, stepRegisterIndicator, stepComputeWarmup)
	}
	if pr.NeedsHistorical {
		pr.Steps = append(pr.Steps, stepComputeQuality)
	}
	return pr
}

// AnalyzeAdhocBar builds the minimal Phase A record for a single-bar
// addition: no historical, no quality, no indicators.
func (e *ProvisioningExecutor) AnalyzeAdhocBar(symbol string, interval types.Interval) ProvisioningRequirements {
	return ProvisioningRequirements{
		Operation:         OpAdhocBar,
		Source:            string(session.AddedByAdhoc),
		Symbol:            symbol,
		RequiredIntervals: []types.Interval{interval},
		BaseInterval:      interval,
		AddedBy:           session.AddedByAdhoc,
		Steps:             []string{stepCreateSymbol},
	}
}

// Validate is Phase B. Each symbol validates independently; an error means
// this symbol is dropped from the batch.
func (e *ProvisioningExecutor) Validate(pr *ProvisioningRequirements) error {
	if e.Data.HasSymbol(pr.Symbol) {
		meta, err := e.Data.Metadata(pr.Symbol)
		if err != nil {
			return err
		}
		if meta.MeetsSessionConfigRequirements {
			return &ValidationError{Symbol: pr.Symbol, Reason: "already_active"}
		}
		// adhoc symbol upgraded in place by a full add
		pr.upgrade = true
	}

	for _, interval := range pr.RequiredIntervals {
		if interval != pr.BaseInterval && !interval.DerivableFrom(pr.BaseInterval) {
			return &ValidationError{Symbol: pr.Symbol, Reason: "unsupported_interval_" + interval.String()}
		}
	}

	sessionDate := e.Data.SessionDate()
	if pr.NeedsHistorical {
		histStart := sessionDate.AddDate(0, 0, -pr.HistoricalDays)
		histEnd := sessionDate.AddDate(0, 0, -1)
		if !e.Source.HasData(pr.Symbol, pr.BaseInterval, histStart, histEnd) {
			return &ValidationError{Symbol: pr.Symbol, Reason: "no_historical_data"}
		}
	}

	if pr.Operation != OpAdhocBar && pr.Operation != OpAdhocIndicator {
		if !e.Source.HasData(pr.Symbol, pr.BaseInterval, sessionDate, sessionDate) {
			return &ValidationError{Symbol: pr.Symbol, Reason: "no_data_source"}
		}
	}

	return nil
}

// Provision is Phase C: execute the steps in order. A failing step demotes
// the symbol to meets_session_config_requirements=false rather than
// removing it; only create_symbol failures abort.
func (e *ProvisioningExecutor) Provision(ctx context.Context, pr *ProvisioningRequirements) error {
	logger := log.WithFields(logrus.Fields{
		"symbol":    pr.Symbol,
		"operation": string(pr.Operation),
	})

	steps := pr.Steps
	if pr.upgrade {
		steps = upgradeSteps(steps)
	}

	for _, step := range steps {
		logger.Debugf("provisioning step %s", step)

		var err error
		switch {
		case step == stepCreateSymbol:
			err = e.createSymbol(pr)
		case step == stepUpgradeSymbol:
			err = e.Data.UpgradeSymbol(pr.Symbol, pr.AddedBy)
		case strings.HasPrefix(step, stepAddInterval):
			err = e.Data.AddInterval(pr.Symbol, types.Interval(strings.TrimPrefix(step, stepAddInterval)))
		case step == stepLoadHistorical:
			err = e.manageHistoricalData(ctx, pr)
		case step == stepLoadSession:
			err = e.loadQueues(ctx, pr)
		case step == stepRegisterIndicator:
			err = e.registerSessionIndicators(pr)
		case step == stepComputeWarmup:
			err = e.computeWarmup(pr)
		case step == stepComputeQuality:
			err = e.calculateHistoricalQuality(pr)
		default:
			err = errors.Errorf("unknown provisioning step %q", step)
		}

		if err != nil {
			if step == stepCreateSymbol || step == stepUpgradeSymbol {
				return err
			}
			logger.WithError(err).Errorf("provisioning step %s failed, demoting symbol", step)
			e.demote(pr.Symbol)
			return nil
		}
	}

	return nil
}

// upgradeSteps swaps create_symbol for upgrade_symbol and drops nothing
// else: the executor fills missing pieces without recreating existing bar
// structures (AddInterval is a no-op on present intervals).
func upgradeSteps(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s == stepCreateSymbol {
			out = append(out, stepUpgradeSymbol)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *ProvisioningExecutor) createSymbol(pr *ProvisioningRequirements) error {
	meta := session.SymbolMetadata{
		MeetsSessionConfigRequirements: pr.MeetsSessionConfigRequirements,
		AddedBy:                        pr.AddedBy,
		AutoProvisioned:                pr.Operation == OpAdhocBar || pr.Operation == OpAdhocIndicator,
		AddedAt:                        e.Time.Now(),
	}
	return e.Data.RegisterSymbol(session.NewSymbolSessionData(pr.Symbol, pr.BaseInterval, meta))
}

func (e *ProvisioningExecutor) manageHistoricalData(ctx context.Context, pr *ProvisioningRequirements) error {
	sessionDate := e.Data.SessionDate()
	histStart := sessionDate.AddDate(0, 0, -pr.HistoricalDays)
	histEnd := sessionDate.AddDate(0, 0, -1)

	for _, interval := range pr.RequiredIntervals {
		bars, err := e.Source.LoadHistoricalBars(ctx, pr.Symbol, interval, histStart, histEnd)
		if err != nil {
			return errors.Wrapf(err, "loading historical %s", interval)
		}
		if len(bars) == 0 {
			continue
		}
		if err := e.Data.AddHistoricalBars(pr.Symbol, interval, bars); err != nil {
			return err
		}
	}
	return nil
}

func (e *ProvisioningExecutor) loadQueues(ctx context.Context, pr *ProvisioningRequirements) error {
	if e.LoadSession == nil {
		return nil
	}
	return e.LoadSession(ctx, pr.Symbol, pr.BaseInterval)
}

func (e *ProvisioningExecutor) registerSessionIndicators(pr *ProvisioningRequirements) error {
	for _, cfg := range pr.IndicatorConfigs {
		state, err := indicator.New(cfg)
		if err != nil {
			return err
		}
		warmup, err := indicator.Warmup(cfg)
		if err != nil {
			return err
		}

		data := &session.IndicatorData{
			Config: cfg,
			State:  state,
			Warmup: warmup,
		}
		if err := e.Data.SetIndicator(pr.Symbol, cfg.Key(), data); err != nil {
			return err
		}
	}
	return nil
}

// computeWarmup feeds archived historical bars into the freshly registered
// indicators so their values are valid from the first session bar.
func (e *ProvisioningExecutor) computeWarmup(pr *ProvisioningRequirements) error {
	for _, cfg := range pr.IndicatorConfigs {
		bars := e.Data.HistoricalBars(pr.Symbol, cfg.Interval)
		if len(bars) == 0 {
			continue
		}

		data, err := e.Data.Indicator(pr.Symbol, cfg.Key())
		if err != nil {
			return err
		}
		for _, b := range bars {
			data.Update(b)
		}
	}
	return nil
}

func (e *ProvisioningExecutor) calculateHistoricalQuality(pr *ProvisioningRequirements) error {
	if e.QualityForHistorical == nil {
		return nil
	}

	sessionDate := e.Data.SessionDate()
	histStart := sessionDate.AddDate(0, 0, -pr.HistoricalDays)
	histEnd := sessionDate.AddDate(0, 0, -1)

	for _, interval := range pr.RequiredIntervals {
		q := e.QualityForHistorical(pr.Symbol, interval, histStart, histEnd)
		if err := e.Data.SetQuality(pr.Symbol, interval, q); err != nil {
			return err
		}
	}
	return nil
}

func (e *ProvisioningExecutor) demote(symbol string) {
	if err := e.Data.DemoteSymbol(symbol); err != nil {
		log.WithError(err).Errorf("demoting %s", symbol)
	}
}

// BatchResult reports one symbol's outcome.
type BatchResult struct {
	Requirements ProvisioningRequirements
	Err          error
}

// ExecuteBatch validates and provisions each requirement independently.
// Failed symbols are dropped; if every symbol fails the batch fails with
// ErrAllSymbolsFailed.
func (e *ProvisioningExecutor) ExecuteBatch(ctx context.Context, reqs []ProvisioningRequirements) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(reqs))
	succeeded := 0

	for i := range reqs {
		pr := reqs[i]

		if err := e.Validate(&pr); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) && verr.Reason == "already_active" {
				// requirements already met: short-circuit, not a failure
				results = append(results, BatchResult{Requirements: pr})
				succeeded++
				continue
			}
			results = append(results, BatchResult{Requirements: pr, Err: err})
			continue
		}

		if err := e.Provision(ctx, &pr); err != nil {
			results = append(results, BatchResult{Requirements: pr, Err: err})
			continue
		}

		results = append(results, BatchResult{Requirements: pr})
		succeeded++
	}

	if len(reqs) > 0 && succeeded == 0 {
		return results, errors.Wrapf(types.ErrAllSymbolsFailed, "%d symbols", len(reqs))
	}
	return results, nil
}
