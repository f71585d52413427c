package workers

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/bridge"
	"gotokenbridge/evm"
	"gotokenbridge/identity"
	"gotokenbridge/ingress"
	"gotokenbridge/telemetry"
	"gotokenbridge/types"
)

// LogSource is the part of an EVM client the scanner reads from.
type LogSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	TransferLogs(ctx context.Context, tokens []common.Address, recipient common.Address, from, to uint64) ([]evm.Transfer, error)
}

// Bridge is what the scanner delivers observed deposits to.
type Bridge interface {
	Tokens() ([]types.TokenInfo, error)
	DeliverDeposit(
		ctx context.Context, tokenCaller identity.Caller, operator, from string,
		amount *big.Int, toChain, toAddress string, receipt bridge.Receipt,
	) (uint64, error)
}

// Bindings resolves the destination a depositor registered.
type Bindings interface {
	Lookup(source common.Address) (*types.AddressBookRecord, error)
}

type ScanConfig struct {
	ChainID       int64
	Custodian     common.Address
	Confirmations uint64
	BlockBatch    uint64
	SafetyWindow  uint64
	Interval      time.Duration
}

var errBridgePaused = errors.New("bridge paused, deliveries held back")

// ScanEVM watches Transfer logs of every registered token whose recipient
// is the custody account and reports each deposit to the bridge once.
type ScanEVM struct {
	cfg      ScanConfig
	source   LogSource
	bridge   Bridge
	bindings Bindings
	ingress  *ingress.Store
	now      func() time.Time
	logger   hclog.Logger
}

// NewScanEVM returns a scanner. ingressStore must share the bridge's
// storage, delivered records are written in the bridge's transactions.
func NewScanEVM(
	cfg ScanConfig, source LogSource, bridge Bridge, bindings Bindings, ingressStore *ingress.Store, logger hclog.Logger,
) *ScanEVM {
	if cfg.BlockBatch == 0 {
		cfg.BlockBatch = 512
	}
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Second
	}
	return &ScanEVM{
		cfg:      cfg,
		source:   source,
		bridge:   bridge,
		bindings: bindings,
		ingress:  ingressStore,
		now:      time.Now,
		logger:   logger.Named("scan_evm").With("chainId", cfg.ChainID),
	}
}

// Run scans every interval until ctx is done.
func (s *ScanEVM) Run(ctx context.Context) {
	s.logger.Info("scanner started", "custodian", s.cfg.Custodian, "interval", s.cfg.Interval)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return
		case <-ticker.C:
		}

		if err := s.ScanOnce(ctx); err != nil {
			if errors.Is(err, errBridgePaused) {
				s.logger.Warn("scan halted", "err", err)
			} else {
				s.logger.Error("scan failed", "err", err)
			}
		}
	}
}

// ScanOnce scans from the stored cursor, minus the safety window, up to the
// latest block with enough confirmations. The cursor moves only past
// batches that were fully handled.
func (s *ScanEVM) ScanOnce(ctx context.Context) error {
	latest, err := s.source.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("error getting last EVM block: %w", err)
	}
	if latest < s.cfg.Confirmations {
		return nil
	}
	head := latest - s.cfg.Confirmations

	scanned, ok, err := s.ingress.ScannedBlock(s.cfg.ChainID)
	if err != nil {
		return err
	}
	if !ok {
		// new environment, start at the head
		scanned = head
	}

	from := scanned + 1
	if from > s.cfg.SafetyWindow {
		from -= s.cfg.SafetyWindow
	} else {
		from = 0
	}

	tokens, err := s.tokenAddresses()
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return s.advance(head)
	}

	for blockNum := from; blockNum <= head; blockNum += s.cfg.BlockBatch {
		toBlock := blockNum + s.cfg.BlockBatch - 1
		if toBlock > head {
			toBlock = head
		}
		s.logger.Debug("scanning blocks", "from", blockNum, "to", toBlock)

		transfers, err := s.source.TransferLogs(ctx, tokens, s.cfg.Custodian, blockNum, toBlock)
		if err != nil {
			return fmt.Errorf("error querying EVM RPC: %w", err)
		}

		for _, t := range transfers {
			if err := s.handle(ctx, t); err != nil {
				// don't consider this batch as processed
				return err
			}
		}

		if toBlock > scanned || !ok {
			if err := s.advance(toBlock); err != nil {
				return err
			}
			scanned, ok = toBlock, true
		}
	}
	if !ok {
		return s.advance(head)
	}
	return nil
}

func (s *ScanEVM) advance(block uint64) error {
	if err := s.ingress.SetScannedBlock(s.cfg.ChainID, block); err != nil {
		return err
	}
	telemetry.SetScannedBlock(strconv.FormatInt(s.cfg.ChainID, 10), block)
	return nil
}

func (s *ScanEVM) tokenAddresses() ([]common.Address, error) {
	infos, err := s.bridge.Tokens()
	if err != nil {
		return nil, err
	}
	addrs := make([]common.Address, 0, len(infos))
	for _, info := range infos {
		addrs = append(addrs, info.Address)
	}
	return addrs, nil
}

func (s *ScanEVM) handle(ctx context.Context, t evm.Transfer) error {
	if t.Removed || t.To != s.cfg.Custodian {
		return nil
	}

	txHash := t.TxHash.Hex()

	existing, err := s.ingress.Get(txHash, t.LogIndex)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Trace("transfer already handled", "tx", txHash, "index", t.LogIndex, "status", existing.Status)
		return nil
	}

	rec := &types.Ingress{
		ID:       uuid.New().String(),
		Token:    t.Token,
		TxHash:   txHash,
		LogIndex: t.LogIndex,
		From:     t.From,
		Amount:   t.Amount.String(),
		TsFound:  s.now().Unix(),
	}

	binding, err := s.bindings.Lookup(t.From)
	if err != nil {
		return fmt.Errorf("error getting address book record: %w", err)
	}

	if binding == nil {
		rec.Status = types.IngressFailed
		rec.Message = "Missing address book record"
		return s.recordFailed(rec, t)
	}
	rec.ToChain = binding.DestChain
	rec.ToAddress = binding.DestAddress

	// the delivered record commits with the swap-out itself
	id, err := s.bridge.DeliverDeposit(ctx, identity.Trusted(t.Token), t.From.Hex(), t.From.Hex(),
		t.Amount, binding.DestChain, binding.DestAddress, ingress.Receipt(rec))
	switch {
	case errors.Is(err, ingress.ErrRecorded):
		s.logger.Trace("transfer already handled", "tx", txHash, "index", t.LogIndex)
		return nil
	case errors.Is(err, types.ErrBridgePaused):
		return fmt.Errorf("%w: transfer %s:%d", errBridgePaused, txHash, t.LogIndex)
	case types.ErrorKind(err) != nil:
		rec.Status = types.IngressFailed
		rec.Message = err.Error()
		return s.recordFailed(rec, t)
	case err != nil:
		// transient, the transfer is retried on the next scan
		return fmt.Errorf("transfer %s:%d not delivered: %w", txHash, t.LogIndex, err)
	}

	telemetry.IncrIngress(types.IngressDelivered)
	s.logger.Info("deposit delivered", "tx", txHash, "index", t.LogIndex, "token", t.Token,
		"from", t.From, "amount", t.Amount, "swapOutId", id)
	return nil
}

// recordFailed stores a deposit the bridge rejected for good. Its tokens
// stay in custody until an operator returns them.
func (s *ScanEVM) recordFailed(rec *types.Ingress, t evm.Transfer) error {
	if _, err := s.ingress.Put(rec); err != nil {
		s.logger.Error("cannot store ingress record", "tx", rec.TxHash, "index", t.LogIndex,
			"status", rec.Status, "err", err)
		return err
	}
	telemetry.IncrIngress(rec.Status)

	s.logger.Error("deposit not delivered, tokens stay in custody", "tx", rec.TxHash, "index", t.LogIndex,
		"token", t.Token, "from", t.From, "amount", t.Amount, "reason", rec.Message)
	return nil
}
