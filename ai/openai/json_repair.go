// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import "regexp"

var (
	// `, type":` or `{ type":` -> opening quote missing before a key
	missingOpenQuote = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z_ ]*?)"\s*:`)
	// `{type:` -> key not quoted at all
	unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	// `,}` or `,]`
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// repairJSON fixes the formatting mistakes small models commonly make in
// JSON objects: keys missing one or both quotes and trailing commas.
func repairJSON(s string) string {
	s = missingOpenQuote.ReplaceAllString(s, `$1"$2":`)
	s = unquotedKey.ReplaceAllString(s, `$1"$2":`)
	return trailingComma.ReplaceAllString(s, `$1`)
}
