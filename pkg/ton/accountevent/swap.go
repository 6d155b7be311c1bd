package accountevent

// mergeSwaps pairs a jetton sent to a counterparty with jetton or TON that the
// same counterparty sent back, replacing both with one JettonSwap.
func (b *builder) mergeSwaps() []Action {
	used := make(map[Action]bool)
	pairs := make(map[Action]Action)
	for _, a := range b.actions {
		if _, ok := a.(*JettonTransferAction); !ok || b.flows[a].dir != sent || used[a] {
			continue
		}
		if back := b.findReturn(b.flows[a].counterparty, used, a); back != nil {
			used[a], used[back] = true, true
			pairs[a] = back
		}
	}

	out := make([]Action, 0, len(b.actions))
	for _, a := range b.actions {
		if back, ok := pairs[a]; ok {
			out = append(out, b.swap(a.(*JettonTransferAction), back))
			continue
		}
		if !used[a] {
			out = append(out, a)
		}
	}
	return out
}

func (b *builder) findReturn(counterparty string, used map[Action]bool, self Action) Action {
	if counterparty == "" {
		return nil
	}
	var ton Action
	for _, a := range b.actions {
		if a == self || used[a] {
			continue
		}
		f, ok := b.flows[a]
		if !ok || f.dir != received || f.counterparty != counterparty {
			continue
		}
		switch a.(type) {
		case *JettonTransferAction:
			return a
		case *TonTransferAction:
			if ton == nil {
				ton = a
			}
		}
	}
	return ton
}

func (b *builder) swap(in *JettonTransferAction, back Action) *JettonSwapAction {
	router := b.flows[in].counterparty
	status, reason := in.Status, in.FailureReason
	if status == StatusSuccess && back.Base().Status == StatusFailure {
		status, reason = StatusFailure, back.Base().FailureReason
	}

	txs := append([]string{}, in.BaseTransactions...)
	seen := make(map[string]bool, len(txs))
	for _, h := range txs {
		seen[h] = true
	}
	for _, h := range back.Base().BaseTransactions {
		if !seen[h] {
			seen[h] = true
			txs = append(txs, h)
		}
	}

	masterIn := in.Jetton
	s := &JettonSwapAction{
		ActionBase:     base(in.ID, status, reason, txs...),
		AmountIn:       in.Amount,
		UserWallet:     b.g.book.account(b.acc),
		Router:         b.g.book.account(router),
		JettonMasterIn: &masterIn,
	}
	s.Dex = s.Router.Name
	switch out := back.(type) {
	case *JettonTransferAction:
		masterOut := out.Jetton
		s.AmountOut = out.Amount
		s.JettonMasterOut = &masterOut
	case *TonTransferAction:
		s.TonOut = out.Amount
	}
	s.SimplePreview = swapPreview(s)
	return s
}
