package dispute

import (
	"sort"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
)

// computeOutcome derives the arbitration result from the cast ballots. It is
// a pure function of its inputs so resolution stays deterministic and safely
// recomputable.
//
// The plurality winner across ballots becomes the final winner. A submission
// is malicious when a strict majority of cast ballots tagged it. A malicious
// incumbent voids the task outright, and rejected challenges against it are
// reinterpreted as justified whistleblowing for trust purposes.
func computeOutcome(
	task types.TaskData,
	challenges []types.ChallengeData,
	ballots []types.JuryBallotData,
) types.ArbitrationOutcome {
	outcome := types.ArbitrationOutcome{
		TaskID:   task.TaskID,
		Verdicts: make(map[string]types.ChallengeVerdict, len(challenges)),
	}

	var cast []types.JuryBallotData
	for _, b := range ballots {
		if b.IsCast() {
			cast = append(cast, b)
		}
	}
	if len(cast) == 0 {
		// No jury input: the provisional winner stands, every challenge fails.
		outcome.FinalWinnerSubmissionID = task.WinnerSubmissionID
		for _, c := range challenges {
			outcome.Verdicts[c.ChallengeID] = types.VerdictRejected
		}
		return outcome
	}

	winnerVotes := make(map[string]int)
	maliciousVotes := make(map[string]int)
	for _, b := range cast {
		winnerVotes[b.WinnerSubmissionID]++
		for _, id := range b.MaliciousSubmissionIDs {
			maliciousVotes[id]++
		}
	}

	pluralityWinner := pluralityOf(winnerVotes, task.WinnerSubmissionID)

	malicious := make(map[string]bool)
	for id, votes := range maliciousVotes {
		if votes*2 > len(cast) {
			malicious[id] = true
			outcome.MaliciousSubmissionIDs = append(outcome.MaliciousSubmissionIDs, id)
		}
	}
	sort.Strings(outcome.MaliciousSubmissionIDs)

	outcome.Voided = malicious[task.WinnerSubmissionID]
	if !outcome.Voided {
		outcome.FinalWinnerSubmissionID = pluralityWinner
	}

	for _, c := range challenges {
		var verdict types.ChallengeVerdict
		switch {
		case malicious[c.ChallengerSubmissionID]:
			verdict = types.VerdictMalicious
		case c.ChallengerSubmissionID == pluralityWinner && !outcome.Voided:
			verdict = types.VerdictUpheld
		default:
			verdict = types.VerdictRejected
		}
		outcome.Verdicts[c.ChallengeID] = verdict

		if verdict == types.VerdictRejected && outcome.Voided {
			outcome.Whistleblowers = append(outcome.Whistleblowers, c.ChallengeID)
		}
	}

	for _, b := range cast {
		if b.WinnerSubmissionID == pluralityWinner {
			outcome.MajorityArbiters = append(outcome.MajorityArbiters, b.ArbiterID)
		} else {
			outcome.MinorityArbiters = append(outcome.MinorityArbiters, b.ArbiterID)
		}
	}
	return outcome
}

// pluralityOf picks the submission with the most winner votes. Ties go to
// the incumbent when it is among the leaders, otherwise to the smallest
// submission ID so recomputation is stable.
func pluralityOf(votes map[string]int, incumbent string) string {
	best := ""
	bestVotes := -1
	for id, n := range votes {
		switch {
		case n > bestVotes:
			best, bestVotes = id, n
		case n == bestVotes:
			if id == incumbent || (best != incumbent && id < best) {
				best = id
			}
		}
	}
	return best
}
