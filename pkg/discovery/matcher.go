// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery matches free-text queries to registered agents by
// lexical overlap with the skills embedded in each agent.
//
// Every embedded skill is scored on its own. A query term counts once per
// skill, under the heaviest category it appears in:
//
//	name token          3
//	tag                 2
//	description token   1
//	example token       1
//
// and a skill earns an extra 2 once when one of its example phrases contains
// the whole query, or the query contains the whole example. The contained
// phrase must be at least two words long, so a one-word query that only
// appears in an example never reaches a name match. An agent scores
// the maximum of its skills, so one strong skill beats several weak ones.
// Agents with equal scores rank in creation order; a zero score never matches.
package discovery

import (
	"sort"
	"strings"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
)

// Weights is the scoring table. Name > Tag >= ExampleSubstring > Description
// must hold for rankings to stay meaningful.
type Weights struct {
	Name             int
	Tag              int
	ExampleSubstring int
	Description      int
	Example          int
}

// DefaultWeights is the weight table used by NewMatcher.
var DefaultWeights = Weights{
	Name:             3,
	Tag:              2,
	ExampleSubstring: 2,
	Description:      1,
	Example:          1,
}

// Match is one scored agent.
type Match struct {
	Agent core.Agent
	Score int
	// Skill is the embedded skill that produced Score.
	Skill core.Skill
}

// Matcher scores agents against queries. It holds no state besides its
// weights and is safe for concurrent use.
type Matcher struct {
	weights Weights
}

// NewMatcher creates a matcher with DefaultWeights.
func NewMatcher() *Matcher {
	return &Matcher{weights: DefaultWeights}
}

// NewMatcherWithWeights creates a matcher with a custom weight table.
func NewMatcherWithWeights(w Weights) *Matcher {
	return &Matcher{weights: w}
}

// Discover returns the best match for query, or nil when no agent scores
// above zero. agents must be in creation order.
func (m *Matcher) Discover(query string, agents []core.Agent) *Match {
	ranked := m.Rank(query, agents, 1)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

// Rank returns up to limit agents with a positive score, best first. Ties keep
// the input order, which callers supply as creation order. limit <= 0 means
// no limit.
func (m *Matcher) Rank(query string, agents []core.Agent, limit int) []Match {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return []Match{}
	}
	phrase := normalizePhrase(query)

	matches := make([]Match, 0)
	for _, agent := range agents {
		best, skill := 0, -1
		for i := range agent.Skills {
			if score := m.scoreSkill(terms, phrase, agent.Skills[i]); score > best {
				best, skill = score, i
			}
		}
		if best > 0 {
			matches = append(matches, Match{Agent: agent, Score: best, Skill: agent.Skills[skill]})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Score returns the score of a single skill for query.
func (m *Matcher) Score(query string, skill core.Skill) int {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return 0
	}
	return m.scoreSkill(terms, normalizePhrase(query), skill)
}

func (m *Matcher) scoreSkill(terms []string, phrase string, skill core.Skill) int {
	name := newTermSet(skill.Name)
	tags := newTermSet(skill.Tags...)
	desc := newTermSet(skill.Description)
	examples := newTermSet(skill.Examples...)

	score := 0
	for _, term := range terms {
		switch {
		case name.has(term):
			score += m.weights.Name
		case tags.has(term):
			score += m.weights.Tag
		case desc.has(term):
			score += m.weights.Description
		case examples.has(term):
			score += m.weights.Example
		}
	}

	if phrase != "" {
		for _, example := range skill.Examples {
			if containsEither(normalizePhrase(example), phrase) {
				score += m.weights.ExampleSubstring
				break
			}
		}
	}
	return score
}

// minPhraseWords is the shortest phrase that earns the example bonus.
const minPhraseWords = 2

// containsEither reports whether one phrase contains the other on word
// boundaries. The contained phrase needs at least minPhraseWords words.
func containsEither(a, b string) bool {
	if len(strings.Fields(a)) > len(strings.Fields(b)) {
		a, b = b, a
	}
	if len(strings.Fields(a)) < minPhraseWords {
		return false
	}
	return strings.Contains(" "+b+" ", " "+a+" ")
}
