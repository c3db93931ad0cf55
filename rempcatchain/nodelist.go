// Copyright 2024 The REMP Authors
// This file is part of the remp library.
//
// The remp library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The remp library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the remp library. If not, see <http://www.gnu.org/licenses/>.

package rempcatchain

import (
	"crypto/sha256"
	"encoding/binary"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// BuildNodeList concatenates current, in order, then every member of
// next whose TransportID hasn't already appeared, preserving first-seen
// order throughout. A mapset.Set[common.Hash] does the membership
// check; the output order itself is still built by hand since sets are
// unordered by nature.
func BuildNodeList(current, next []Node) []Node {
	seen := mapset.NewSet[common.Hash]()
	out := make([]Node, 0, len(current)+len(next))

	for _, n := range current {
		seen.Add(n.TransportID)
		out = append(out, n)
	}
	for _, n := range next {
		if seen.Contains(n.TransportID) {
			continue
		}
		seen.Add(n.TransportID)
		out = append(out, n)
	}
	return out
}

// LocalIndex returns the position of localKeyID within nodes, matched
// against each node's PublicKeyHash. Failing to find it is a fatal
// construction error.
func LocalIndex(nodes []Node, localKeyID common.Hash) (int, bool) {
	for i, n := range nodes {
		if n.PublicKeyHash == localKeyID {
			return i, true
		}
	}
	return 0, false
}

// ComputeQueueID derives queue_id = SHA-256(be(seqno) ++ sum of
// current.node_id_short ++ sum of next.node_id_short), in that exact
// byte order, so two honest nodes given the same (seqno, current,
// next) triple compute a bit-identical id.
func ComputeQueueID(seqno uint32, current, next []Node) common.Hash {
	h := sha256.New()

	var seqnoBuf [4]byte
	binary.BigEndian.PutUint32(seqnoBuf[:], seqno)
	h.Write(seqnoBuf[:])

	for _, n := range current {
		h.Write(n.NodeIDShort[:])
	}
	for _, n := range next {
		h.Write(n.NodeIDShort[:])
	}

	var sum common.Hash
	h.Sum(sum[:0])
	return sum
}

// ComputeNodeListID derives the validator-list identifier from the
// combined node list and the (shard, seqno) tuple as SHA-256(shard ++
// be(seqno) ++ each node's PublicKeyHash), computed here; no external
// identifier function is called. It follows the same construction as
// ComputeQueueID so the two ids are reproducible from identical inputs,
// while remaining visibly distinct from queue_id (shard is folded in,
// current/next are not kept separate).
func ComputeNodeListID(shard common.Hash, seqno uint32, nodes []Node) common.Hash {
	h := sha256.New()
	h.Write(shard[:])

	var seqnoBuf [4]byte
	binary.BigEndian.PutUint32(seqnoBuf[:], seqno)
	h.Write(seqnoBuf[:])

	for _, n := range nodes {
		h.Write(n.PublicKeyHash[:])
	}

	var sum common.Hash
	h.Sum(sum[:0])
	return sum
}
