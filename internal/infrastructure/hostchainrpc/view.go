package hostchainrpc

import (
	"context"
	"time"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// View implements ports.HostChainView over the generic Client.
type View struct{ c *Client }

// NewView wraps Client as a ports.HostChainView.
func NewView(c *Client) *View { return &View{c: c} }

func (v *View) ActiveSigners(ctx context.Context) (domain.SignerSet, error) {
	var signers domain.SignerSet
	err := v.c.call(ctx, "get_active_signers", nil, &signers)
	return signers, err
}

func (v *View) HeadBlockTime(ctx context.Context) (time.Time, error) {
	var unix int64
	if err := v.c.call(ctx, "get_head_block_time", nil, &unix); err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0).UTC(), nil
}

func (v *View) BlockInterval(ctx context.Context) (time.Duration, error) {
	var seconds int64
	if err := v.c.call(ctx, "get_block_interval", nil, &seconds); err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func (v *View) ActiveWitnessCount(ctx context.Context) (int, error) {
	var n int
	err := v.c.call(ctx, "get_active_witness_count", nil, &n)
	return n, err
}

func (v *View) MinTxConfirmations(ctx context.Context) (uint32, error) {
	var n uint32
	err := v.c.call(ctx, "get_min_tx_confirmations", nil, &n)
	return n, err
}

func (v *View) DepositAddress(ctx context.Context, address string) (string, bool, error) {
	var result struct {
		OwnerID string `json:"owner_id"`
		Tracked bool   `json:"tracked"`
	}
	err := v.c.call(ctx, "get_deposit_address", []interface{}{address}, &result)
	return result.OwnerID, result.Tracked, err
}

func (v *View) ActiveVault(ctx context.Context) (*domain.Vault, bool, error) {
	return v.fetchVault(ctx, "get_active_vault")
}

func (v *View) PreviousVault(ctx context.Context) (*domain.Vault, bool, error) {
	return v.fetchVault(ctx, "get_previous_vault")
}

func (v *View) fetchVault(ctx context.Context, method string) (*domain.Vault, bool, error) {
	var result struct {
		Vault *domain.Vault `json:"vault"`
	}
	if err := v.c.call(ctx, method, nil, &result); err != nil {
		return nil, false, err
	}
	return result.Vault, result.Vault != nil, nil
}

func (v *View) VaultUTXOs(ctx context.Context, vaultID string) ([]ports.Utxo, error) {
	var utxos []ports.Utxo
	err := v.c.call(ctx, "get_vault_utxos", []interface{}{vaultID}, &utxos)
	return utxos, err
}

func (v *View) GetDeposit(ctx context.Context, depositID string) (*domain.Deposit, error) {
	var d domain.Deposit
	if err := v.c.call(ctx, "get_deposit", []interface{}{depositID}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (v *View) GetWithdrawal(ctx context.Context, withdrawID string) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := v.c.call(ctx, "get_withdrawal", []interface{}{withdrawID}, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (v *View) GetSidechainTx(ctx context.Context, stxID string) (*domain.SidechainTx, bool, error) {
	var result struct {
		Tx *domain.SidechainTx `json:"tx"`
	}
	if err := v.c.call(ctx, "get_sidechain_tx", []interface{}{stxID}, &result); err != nil {
		return nil, false, err
	}
	return result.Tx, result.Tx != nil, nil
}

func (v *View) PendingDeposits(ctx context.Context) ([]*domain.Deposit, error) {
	var deposits []*domain.Deposit
	err := v.c.call(ctx, "get_pending_deposits", nil, &deposits)
	return deposits, err
}

func (v *View) PendingWithdrawals(ctx context.Context) ([]*domain.Withdrawal, error) {
	var withdrawals []*domain.Withdrawal
	err := v.c.call(ctx, "get_pending_withdrawals", nil, &withdrawals)
	return withdrawals, err
}

func (v *View) OpenSidechainTxs(ctx context.Context) ([]*domain.SidechainTx, error) {
	var txs []*domain.SidechainTx
	err := v.c.call(ctx, "get_open_sidechain_txs", nil, &txs)
	return txs, err
}

func (v *View) PendingProposals(ctx context.Context) ([]*ports.Proposal, error) {
	var proposals []*ports.Proposal
	err := v.c.call(ctx, "get_pending_proposals", nil, &proposals)
	return proposals, err
}
