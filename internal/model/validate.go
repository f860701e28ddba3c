/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package model

import (
	"encoding/json"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
)

// ValidateAlertLevels checks that raw decodes to a sequence of integers.
// The two error strings are load-bearing: callers reply to the peer with
// them verbatim, and they must match the source protocol byte-for-byte.
func ValidateAlertLevels(raw json.RawMessage) ([]int, error) {
	var generic []any
	if err := json.Unmarshal(raw, &generic); err != nil || generic == nil {
		return nil, liberr.New(liberr.CodeProtocol, "alertLevels not of type list")
	}

	levels := make([]int, 0, len(generic))
	for _, v := range generic {
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return nil, liberr.New(liberr.CodeProtocol, "alertLevels items not of type int")
		}
		levels = append(levels, int(n))
	}
	return levels, nil
}
