package application

import (
	"sort"

	"github.com/mwswap/mwswapd/internal/core/domain"
	"github.com/zyedidia/generic/mapset"
)

const maxFeeIterations = 5

type coinSelection struct {
	inputs []domain.Output
	total  uint64
	fee    uint64
	change uint64
}

// calculateFee returns the fee of a transaction with the given shape:
// max(-inputs + 4*outputs + kernels, 1) * baseFee.
func calculateFee(baseFee uint64, inputs, outputs, kernels int) uint64 {
	weight := -inputs + 4*outputs + kernels
	if weight < 1 {
		weight = 1
	}
	return uint64(weight) * baseFee
}

// eligibleOutputs filters the outputs that can fund a new negotiation.
func eligibleOutputs(
	outputs []domain.Output, tip, minConfirmations uint64,
) []domain.Output {
	eligible := make([]domain.Output, 0, len(outputs))
	for _, o := range outputs {
		if o.IsSpendable(tip, minConfirmations) {
			eligible = append(eligible, o)
		}
	}
	return eligible
}

// selectCoins picks the inputs of a send, estimating the fee for the
// receiver output, the change outputs and one kernel until the selection
// covers amount and fee.
func selectCoins(
	candidates []domain.Output, amount uint64, policy FeePolicy,
) (*coinSelection, error) {
	outputs := policy.ChangeOutputs + 1
	fee := calculateFee(policy.BaseFee, 1, outputs, 1)

	for i := 0; i < maxFeeIterations; i++ {
		inputs, total, err := pickOutputs(
			candidates, amount+fee, policy.MaxOutputs,
			policy.SelectionStrategyIsUseAll,
		)
		if err != nil {
			return nil, err
		}

		newFee := calculateFee(policy.BaseFee, len(inputs), outputs, 1)
		if total >= amount+newFee {
			return &coinSelection{
				inputs: inputs,
				total:  total,
				fee:    newFee,
				change: total - amount - newFee,
			}, nil
		}
		fee = newFee
	}
	return nil, domain.ErrInsufficientFunds
}

// selectCoinsWithFee picks the inputs covering amount and a fee already
// agreed with the counterparty.
func selectCoinsWithFee(
	candidates []domain.Output, amount, fee uint64, policy FeePolicy,
) (*coinSelection, error) {
	inputs, total, err := pickOutputs(
		candidates, amount+fee, policy.MaxOutputs,
		policy.SelectionStrategyIsUseAll,
	)
	if err != nil {
		return nil, err
	}
	return &coinSelection{
		inputs: inputs,
		total:  total,
		fee:    fee,
		change: total - amount - fee,
	}, nil
}

// pickOutputs returns the smallest single output covering the target if
// any, otherwise the largest outputs accumulated until the target is
// reached, never more than maxOutputs of them.
func pickOutputs(
	candidates []domain.Output, target uint64, maxOutputs int, useAll bool,
) ([]domain.Output, uint64, error) {
	sorted := make([]domain.Output, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})

	if useAll {
		return pickAll(sorted, target, maxOutputs)
	}

	for _, o := range sorted {
		if o.Value >= target {
			return []domain.Output{o}, o.Value, nil
		}
	}

	taken := mapset.New[string]()
	selected := make([]domain.Output, 0)
	var total uint64
	for i := len(sorted) - 1; i >= 0; i-- {
		if total >= target || len(selected) >= maxOutputs {
			break
		}
		selected = append(selected, sorted[i])
		taken.Put(sorted[i].Commit)
		total += sorted[i].Value
	}
	if total < target {
		return nil, 0, domain.ErrInsufficientFunds
	}

	// the last, smallest, pick can be swapped for a smaller unused output
	// that still covers the target
	last := selected[len(selected)-1]
	rest := total - last.Value
	for _, o := range sorted {
		if taken.Has(o.Commit) {
			continue
		}
		if rest+o.Value >= target {
			if o.Value < last.Value {
				selected[len(selected)-1] = o
				total = rest + o.Value
			}
			break
		}
	}
	return selected, total, nil
}

func pickAll(
	sorted []domain.Output, target uint64, maxOutputs int,
) ([]domain.Output, uint64, error) {
	selected := make([]domain.Output, 0, len(sorted))
	var total uint64
	for i := len(sorted) - 1; i >= 0 && len(selected) < maxOutputs; i-- {
		selected = append(selected, sorted[i])
		total += sorted[i].Value
	}
	if total < target {
		return nil, 0, domain.ErrInsufficientFunds
	}
	return selected, total, nil
}

// splitChange spreads the change over n outputs, the remainder going to
// the last one.
func splitChange(change uint64, n int) []uint64 {
	if change == 0 {
		return nil
	}
	if n <= 0 || uint64(n) > change {
		n = 1
	}
	share := change / uint64(n)
	values := make([]uint64, n)
	for i := range values {
		values[i] = share
	}
	values[n-1] += change - share*uint64(n)
	return values
}
