package dpos

import (
	"bytes"
	"strconv"
	"sync"
	"time"

	"github.com/sequoia-network/sequoia/lib"
)

/*
	CONSENSUS HANDLE:

	Consensus is the single entry point the surrounding runtime talks to. It
	owns the authoritative round state behind a mutex: exactly one goroutine
	mutates consensus state at a time, and exactly one mutation is accepted per
	block height. Reads used by the miner loop (behaviour decision, proposal
	construction) take the same lock so they always observe a settled round.
*/

// RoundStoreI is the persistence contract of the consensus core
type RoundStoreI interface {
	// GetRound() returns the round stored under the round number
	GetRound(roundNumber uint64) (*Round, lib.ErrorI)
	// SetRound() persists the round and advances the latest pointer if needed
	SetRound(round *Round) lib.ErrorI
	// LatestRoundNumber() returns the highest round number ever persisted
	LatestRoundNumber() (uint64, lib.ErrorI)
	// FirstRoundNumberOfTerm() returns the round number that opened the term
	FirstRoundNumberOfTerm(termNumber uint64) (uint64, lib.ErrorI)
	// SetFirstRoundNumberOfTerm() records the round number that opened the term
	SetFirstRoundNumberOfTerm(termNumber, roundNumber uint64) lib.ErrorI
}

// Consensus is the top level object of the consensus core
type Consensus struct {
	sync.Mutex
	store    RoundStoreI        // round history persistence
	provider MinerListProviderI // the election collaborator
	verifier RandomVerifierI    // the random proof verifier
	config   lib.ConsensusConfig
	events   *lib.EventsTracker // the outbox drained by the runtime after each apply
	log      lib.LoggerI

	lastAppliedHeight uint64 // guards the one-mutation-per-block-height invariant
}

// New() constructs the consensus handle around its collaborators
func New(store RoundStoreI, provider MinerListProviderI, config lib.Config, log lib.LoggerI) *Consensus {
	return &Consensus{
		store:    store,
		provider: provider,
		verifier: &BLSRandomVerifier{},
		config:   config.ConsensusConfig,
		events:   &lib.EventsTracker{},
		log:      log,
	}
}

// InitGenesis() generates and persists the first round of the chain from the
// initial miner list; called exactly once on an empty store
func (c *Consensus) InitGenesis(now time.Time) (*Round, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	minerList, err := c.provider.GetCurrentMinerList()
	if err != nil {
		return nil, err
	}
	round, err := GenerateFirstRoundOfTerm(minerList, c.config, now, 1, 1)
	if err != nil {
		return nil, err
	}
	if err = c.store.SetRound(round); err != nil {
		return nil, err
	}
	if err = c.store.SetFirstRoundNumberOfTerm(1, 1); err != nil {
		return nil, err
	}
	c.log.Infof("Genesis round generated with %d miners", round.MinerCount())
	return round, nil
}

// CurrentRound() returns the authoritative round
func (c *Consensus) CurrentRound() (*Round, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	return c.currentRound()
}

// DecideBehaviour() answers which consensus action the miner may take right now
func (c *Consensus) DecideBehaviour(publicKey lib.HexBytes, now time.Time) (Behaviour, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	current, previous, err := c.roundPair()
	if err != nil {
		return BehaviourNothing, err
	}
	termStart, err := c.termStartTime(current)
	if err != nil {
		return BehaviourNothing, err
	}
	return DecideBehaviour(lib.BytesToString(publicKey), current, previous, termStart, c.config, now), nil
}

// ApplyProposal() is the single mutation path of the consensus state: validate
// the proposal against the authoritative round, merge or adopt it, advance the
// finality watermark, persist, and emit the resulting events. senderPublicKey
// comes from the block header's extra data and blockSigner from the block
// signature; they must name the same key
func (c *Consensus) ApplyProposal(height uint64, senderPublicKey, blockSigner lib.HexBytes, behaviour Behaviour, proposed *Round, blockTime time.Time) (lib.Events, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	// one consensus mutation per block height
	if height != 0 && height <= c.lastAppliedHeight {
		return nil, ErrHeightAlreadyApplied(height)
	}
	// a proposal is only as trustworthy as the block signature covering it
	if !bytes.Equal(senderPublicKey, blockSigner) {
		return nil, ErrSenderSignerMismatch()
	}
	sender := lib.BytesToString(senderPublicKey)
	current, previous, err := c.roundPair()
	if err != nil {
		return nil, err
	}
	ctx := &ProposalContext{
		Authoritative: current,
		Previous:      previous,
		Proposed:      proposed,
		Sender:        sender,
		Behaviour:     behaviour,
		Config:        c.config,
		BlockTime:     blockTime,
	}
	if behaviour == BehaviourNextTerm {
		if ctx.Victories, err = c.provider.GetVictories(); err != nil {
			return nil, err
		}
	}
	if err = ValidateBeforeExecution(ctx); err != nil {
		c.log.Warnf("Rejected %s proposal from %s: %s", behaviour, lib.BytesToTruncatedString(senderPublicKey), err.Error())
		return nil, err
	}
	switch behaviour {
	case BehaviourUpdateValue, BehaviourTinyBlock:
		err = c.applyMerge(ctx)
	case BehaviourNextRound, BehaviourNextTerm:
		err = c.applyTransition(ctx)
	}
	if err != nil {
		return nil, err
	}
	c.lastAppliedHeight = height
	c.events.Refer(strconv.FormatUint(height, 10))
	return c.events.Reset(), nil
}

// applyMerge() handles the in-round behaviours: merge the sender's validated
// fields into the authoritative round, recompute finality, and require the
// result to hash to the proposer's committed round
func (c *Consensus) applyMerge(ctx *ProposalContext) lib.ErrorI {
	merged, err := Recover(ctx.Authoritative, ctx.Proposed, ctx.Sender, ctx.Behaviour)
	if err != nil {
		return err
	}
	// the finality recomputation is part of the deterministic merge result, so
	// it runs before the hash equality check
	libAdvanced := false
	if height, ok := CalculateIrreversibleHeight(merged, ctx.Previous); ok {
		libAdvanced = AdvanceIrreversibleHeight(merged, height)
	}
	if err = ValidateAfterExecution(merged, ctx.Proposed); err != nil {
		return err
	}
	if err = c.store.SetRound(merged); err != nil {
		return err
	}
	if libAdvanced {
		c.log.Infof("Irreversible block height advanced to %d", merged.ConfirmedIrreversibleBlockHeight)
		if err = c.events.Add(&lib.Event{
			Type:        lib.EventTypeIrreversibleBlock,
			RoundNumber: merged.RoundNumber,
			TermNumber:  merged.TermNumber,
			Payload: lib.IrreversibleBlockPayload{
				Height:      merged.ConfirmedIrreversibleBlockHeight,
				RoundNumber: merged.ConfirmedIrreversibleBlockRoundNumber,
			},
		}); err != nil {
			return err
		}
	}
	if ctx.Behaviour == BehaviourUpdateValue {
		return c.events.Add(&lib.Event{
			Type:        lib.EventTypeMiningInfoUpdated,
			RoundNumber: merged.RoundNumber,
			TermNumber:  merged.TermNumber,
			Payload:     lib.HexBytes(merged.GetMiner(ctx.Sender).OutValue),
		})
	}
	return nil
}

// applyTransition() handles the round and term boundaries: the proposal was
// already proven equal to the independently generated round, so it is adopted
// with the sender's block counted toward its new slot
func (c *Consensus) applyTransition(ctx *ProposalContext) lib.ErrorI {
	accepted := ctx.Proposed.Clone()
	// the terminating block itself counts toward the sender's production; the
	// sender may be absent after a term transition voted it out
	if slot := accepted.GetMiner(ctx.Sender); slot != nil {
		slot.ProducedBlocks++
		slot.ActualMiningTimes = append(slot.ActualMiningTimes, ctx.BlockTime)
	}
	if err := c.store.SetRound(accepted); err != nil {
		return err
	}
	if ctx.Behaviour != BehaviourNextTerm {
		return nil
	}
	if err := c.store.SetFirstRoundNumberOfTerm(accepted.TermNumber, accepted.RoundNumber); err != nil {
		return err
	}
	// announce the new miner set and snapshot the closed term's counters
	miners := make([]lib.HexBytes, 0, accepted.MinerCount())
	for _, k := range accepted.OrderedMinerKeys() {
		pub, err := lib.StringToBytes(k)
		if err != nil {
			return err
		}
		miners = append(miners, pub)
	}
	if err := c.events.Add(&lib.Event{
		Type:        lib.EventTypeNewMinerList,
		RoundNumber: accepted.RoundNumber,
		TermNumber:  accepted.TermNumber,
		Payload:     lib.NewMinerListPayload{TermNumber: accepted.TermNumber, Miners: miners},
	}); err != nil {
		return err
	}
	produced, missed := make(map[string]uint64, ctx.Authoritative.MinerCount()), make(map[string]uint64, ctx.Authoritative.MinerCount())
	var inactive []string
	for _, k := range ctx.Authoritative.OrderedMinerKeys() {
		m := ctx.Authoritative.Miners[k]
		produced[k], missed[k] = m.ProducedBlocks, m.MissedTimeSlots
		if c.config.MaximumMissedTimeSlots > 0 && m.MissedTimeSlots >= uint64(c.config.MaximumMissedTimeSlots) {
			inactive = append(inactive, k)
		}
	}
	c.log.Infof("Term %d started at round %d with %d miners", accepted.TermNumber, accepted.RoundNumber, accepted.MinerCount())
	return c.events.Add(&lib.Event{
		Type:        lib.EventTypeTermSnapshot,
		RoundNumber: ctx.Authoritative.RoundNumber,
		TermNumber:  ctx.Authoritative.TermNumber,
		Payload:     lib.TermSnapshotPayload{TermNumber: ctx.Authoritative.TermNumber, ProducedBlocks: produced, MissedTimeSlots: missed, Inactive: inactive},
	})
}

// BuildUpdateValue() constructs the sender's main commitment proposal for the
// current round. inValue is the fresh round secret: its commitment goes into
// the proposal while the secret itself stays with the caller until next round.
// The returned round is exactly what ApplyProposal() will persist, so the
// block may commit to its hash
func (c *Consensus) BuildUpdateValue(publicKey lib.HexBytes, inValue, previousInValue lib.HexBytes, impliedIrreversibleHeight uint64, blockTime time.Time) (*Round, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	current, previous, err := c.roundPair()
	if err != nil {
		return nil, err
	}
	sender := lib.BytesToString(publicKey)
	proposal := current.Clone()
	slot := proposal.GetMiner(sender)
	if slot == nil {
		return nil, ErrMinerNotInRound(sender)
	}
	if slot.MinedThisRound() {
		return nil, ErrValueAlreadySet()
	}
	slot.OutValue = OutValueOf(inValue)
	slot.PreviousInValue = append(lib.HexBytes(nil), previousInValue...)
	slot.Signature = CalculateSignature(previousInValue, slot.OutValue)
	slot.SupposedOrderOfNextRound = SignatureToOrder(slot.Signature, int64(proposal.MinerCount()))
	slot.ImpliedIrreversibleBlockHeight = impliedIrreversibleHeight
	slot.ActualMiningTimes = append(slot.ActualMiningTimes, blockTime)
	slot.ProducedBlocks++
	// assign every final order from the deterministic replay, tuning earlier
	// claims displaced by this commitment
	for k, order := range ResolveNextRoundOrders(proposal) {
		proposal.Miners[k].FinalOrderOfNextRound = order
	}
	// mirror the validator's finality recomputation so the hashes agree
	if height, ok := CalculateIrreversibleHeight(proposal, previous); ok {
		AdvanceIrreversibleHeight(proposal, height)
	}
	return proposal, nil
}

// BuildTinyBlock() constructs a tiny block proposal appending one mining time
func (c *Consensus) BuildTinyBlock(publicKey lib.HexBytes, impliedIrreversibleHeight uint64, blockTime time.Time) (*Round, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	current, previous, err := c.roundPair()
	if err != nil {
		return nil, err
	}
	sender := lib.BytesToString(publicKey)
	proposal := current.Clone()
	slot := proposal.GetMiner(sender)
	if slot == nil {
		return nil, ErrMinerNotInRound(sender)
	}
	slot.ActualMiningTimes = append(slot.ActualMiningTimes, blockTime)
	slot.ProducedBlocks++
	if impliedIrreversibleHeight > slot.ImpliedIrreversibleBlockHeight {
		slot.ImpliedIrreversibleBlockHeight = impliedIrreversibleHeight
	}
	if height, ok := CalculateIrreversibleHeight(proposal, previous); ok {
		AdvanceIrreversibleHeight(proposal, height)
	}
	return proposal, nil
}

// BuildNextRound() constructs the round termination proposal
func (c *Consensus) BuildNextRound(blockTime time.Time) (*Round, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	current, err := c.currentRound()
	if err != nil {
		return nil, err
	}
	return GenerateNextRound(current, c.config, blockTime)
}

// BuildNextTerm() constructs the term termination proposal from the election victories
func (c *Consensus) BuildNextTerm(blockTime time.Time) (*Round, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	current, err := c.currentRound()
	if err != nil {
		return nil, err
	}
	victories, err := c.provider.GetVictories()
	if err != nil {
		return nil, err
	}
	return GenerateNextTerm(current, victories, c.config, blockTime)
}

// VerifyRandomProof() exposes random proof verification through the configured verifier
func (c *Consensus) VerifyRandomProof(publicKey, previousRandomSeed, proof []byte) ([]byte, lib.ErrorI) {
	return c.verifier.VerifyRandomProof(publicKey, previousRandomSeed, proof)
}

// currentRound() loads the authoritative round; callers hold the lock
func (c *Consensus) currentRound() (*Round, lib.ErrorI) {
	latest, err := c.store.LatestRoundNumber()
	if err != nil {
		return nil, err
	}
	return c.store.GetRound(latest)
}

// roundPair() loads the authoritative round and its predecessor; the
// predecessor is nil during the first round of the chain. Callers hold the lock
func (c *Consensus) roundPair() (current, previous *Round, err lib.ErrorI) {
	if current, err = c.currentRound(); err != nil {
		return nil, nil, err
	}
	if current.RoundNumber > 1 {
		if previous, err = c.store.GetRound(current.RoundNumber - 1); err != nil {
			return nil, nil, err
		}
	}
	return current, previous, nil
}

// termStartTime() resolves the start time of the current term's first round;
// callers hold the lock
func (c *Consensus) termStartTime(current *Round) (time.Time, lib.ErrorI) {
	firstRoundNumber, err := c.store.FirstRoundNumberOfTerm(current.TermNumber)
	if err != nil {
		return time.Time{}, err
	}
	if firstRoundNumber == current.RoundNumber {
		return current.RoundStartTime(), nil
	}
	first, err := c.store.GetRound(firstRoundNumber)
	if err != nil {
		return time.Time{}, err
	}
	return first.RoundStartTime(), nil
}
