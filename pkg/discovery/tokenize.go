// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "please": {},
	"some": {}, "that": {}, "the": {}, "this": {}, "to": {}, "with": {}, "you": {}, "your": {},
}

// Tokenize lower-cases s, splits it on every rune that is not a letter or a
// digit and returns the distinct remaining terms in first-seen order.
// Stopwords and single-character tokens are dropped.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), isSeparator)
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// normalizePhrase lower-cases s and collapses every run of separators into a
// single space, keeping stopwords so that phrases compare as written.
func normalizePhrase(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), isSeparator), " ")
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

type termSet map[string]struct{}

func newTermSet(parts ...string) termSet {
	set := termSet{}
	for _, p := range parts {
		for _, t := range Tokenize(p) {
			set[t] = struct{}{}
		}
	}
	return set
}

func (s termSet) has(term string) bool {
	_, ok := s[term]
	return ok
}
