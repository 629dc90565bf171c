// Copyright 2019 Intel Corporation. All Rights Reserved.
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

package nodemask

import "testing"

func TestParseNodeMask(t *testing.T) {
	tcs := []struct {
		description string
		input       string
		expected    NodeMask
		fail        bool
	}{
		{
			description: "empty string is a parse error",
			input:       "",
			fail:        true,
		},
		{
			description: "single index",
			input:       "3",
			expected:    NewNodeMask(3),
		},
		{
			description: "mixed indices and ranges",
			input:       "0,2-3",
			expected:    NewNodeMask(0, 2, 3),
		},
		{
			description: "whitespace is tolerated",
			input:       " 0 , 2 - 3 ",
			expected:    NewNodeMask(0, 2, 3),
		},
		{
			description: "empty field between commas is a parse error",
			input:       "0,,1",
			fail:        true,
		},
		{
			description: "inverted range is a parse error",
			input:       "3-1",
			fail:        true,
		},
		{
			description: "out of range index is a parse error",
			input:       "64",
			fail:        true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.description, func(t *testing.T) {
			mask, err := ParseNodeMask(tc.input)
			if tc.fail {
				if err == nil {
					t.Errorf("expected an error, got mask %v", mask)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mask != tc.expected {
				t.Errorf("expected mask %v, got %v", tc.expected, mask)
			}
		})
	}
}

func TestNodeMaskString(t *testing.T) {
	tcs := []struct {
		description string
		mask        NodeMask
		expected    string
	}{
		{
			description: "empty mask stringifies to (none)",
			mask:        0,
			expected:    "(none)",
		},
		{
			description: "non-empty mask stringifies sorted and comma-joined",
			mask:        NewNodeMask(3, 0, 1),
			expected:    "0,1,3",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.description, func(t *testing.T) {
			if got := tc.mask.String(); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestFull(t *testing.T) {
	m := Full(4)
	for id := NodeID(0); id < 4; id++ {
		if !m.Has(id) {
			t.Errorf("expected node %d to be set in Full(4)", id)
		}
	}
	if m.Has(4) {
		t.Errorf("expected node 4 to be unset in Full(4)")
	}
	if m.Count() != 4 {
		t.Errorf("expected count 4, got %d", m.Count())
	}
}
