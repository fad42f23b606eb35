// Copyright 2017 The go-devp2p Authors
// This file is part of the go-devp2p library.
//
// The go-devp2p library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-devp2p library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-devp2p library. If not, see <http://www.gnu.org/licenses/>.

// Package eth implements the Ethereum wire protocol message set, versions
// 62 and 63.
package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ethwire/go-devp2p"
)

const (
	// ProtocolName is the capability name the protocol is announced under.
	ProtocolName = "eth"

	// ProtocolMaxMsgSize is the maximum allowed size for a single message.
	ProtocolMaxMsgSize = 10 * 1024 * 1024
)

// ProtocolVersions are the supported versions of the protocol, first is
// primary.
var ProtocolVersions = []uint{63, 62}

// protocolLengths are the number of implemented message codes per version.
var protocolLengths = map[uint]uint64{63: 17, 62: 8}

// eth protocol message codes
const (
	StatusMsg          = 0x00
	NewBlockHashesMsg  = 0x01
	TransactionsMsg    = 0x02
	GetBlockHeadersMsg = 0x03
	BlockHeadersMsg    = 0x04
	GetBlockBodiesMsg  = 0x05
	BlockBodiesMsg     = 0x06
	NewBlockMsg        = 0x07

	// UnknownMsg is the code reserved for messages whose real code fell
	// outside the implemented range. It never appears on the wire as such;
	// peers speaking a newer protocol revision produce it on decode.
	UnknownMsg = 0x7f
)

// Capabilities returns the capability list to advertise in the transport
// handshake.
func Capabilities() []devp2p.Cap {
	caps := make([]devp2p.Cap, 0, len(ProtocolVersions))
	for _, version := range ProtocolVersions {
		caps = append(caps, devp2p.Cap{Name: ProtocolName, Version: version})
	}
	return caps
}

// Message is a decoded eth protocol message. Code returns the wire message
// code the payload travels under.
type Message interface {
	Code() uint64
}

// Status is the handshake message, exchanged once when a peer connects.
// Its contents are not validated here; chain compatibility checks belong
// to the caller.
type Status struct {
	ProtocolVersion uint32
	NetworkID       uint64
	TD              *big.Int
	Head            common.Hash
	Genesis         common.Hash
}

// BlockAnnounce is one entry of a NewBlockHashes message.
type BlockAnnounce struct {
	Hash   common.Hash // hash of the block being announced
	Number *big.Int    // number of the block being announced
}

// NewBlockHashes announces the availability of a number of blocks. An
// empty announcement is legal.
type NewBlockHashes []BlockAnnounce

// Transactions propagates a batch of transactions.
type Transactions []*types.Transaction

// GetBlockHeadersByNumber requests a batch of headers starting at a block
// number.
type GetBlockHeadersByNumber struct {
	Number     *big.Int // number of the first requested header
	MaxHeaders uint64   // maximum number of headers to retrieve
	Skip       uint64   // blocks to skip between consecutive headers
	Reverse    bool     // query direction (false = rising towards latest)
}

// GetBlockHeadersByHash requests a batch of headers starting at a block
// hash. It shares a wire code with GetBlockHeadersByNumber; receivers tell
// the two apart by the encoded width of the first element (see Decode).
type GetBlockHeadersByHash struct {
	Hash       common.Hash // hash of the first requested header
	MaxHeaders uint64
	Skip       uint64
	Reverse    bool
}

// BlockHeaders answers a header query with the requested headers.
type BlockHeaders []*types.Header

// GetBlockBodies requests the bodies of the referenced blocks.
type GetBlockBodies []common.Hash

// BlockBody is one entry of a BlockBodies message.
type BlockBody struct {
	Transactions []*types.Transaction // transactions contained within a block
	Uncles       []*types.Header      // uncles contained within a block
}

// BlockBodies answers a body query with the requested block contents.
type BlockBodies []BlockBody

// NewBlock propagates an entire block to a remote peer.
type NewBlock struct {
	Block *types.Block
	TD    *big.Int
}

// Unknown stands in for any message whose code is not part of the
// implemented protocol. It decodes from anything and encodes to an empty
// list.
type Unknown struct{}

func (Status) Code() uint64                  { return StatusMsg }
func (NewBlockHashes) Code() uint64          { return NewBlockHashesMsg }
func (Transactions) Code() uint64            { return TransactionsMsg }
func (GetBlockHeadersByNumber) Code() uint64 { return GetBlockHeadersMsg }
func (GetBlockHeadersByHash) Code() uint64   { return GetBlockHeadersMsg }
func (BlockHeaders) Code() uint64            { return BlockHeadersMsg }
func (GetBlockBodies) Code() uint64          { return GetBlockBodiesMsg }
func (BlockBodies) Code() uint64             { return BlockBodiesMsg }
func (NewBlock) Code() uint64                { return NewBlockMsg }
func (Unknown) Code() uint64                 { return UnknownMsg }

// DecodeError is returned when a message payload cannot be interpreted as
// the shape its code demands: a required field is missing, a field has the
// wrong RLP kind, an integer overflows its declared width, or a list count
// is corrupt. The wrapped rlp error pinpoints which.
type DecodeError struct {
	MsgCode uint64
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("eth: invalid message (code %#x): %v", e.MsgCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(code uint64, err error) error {
	return &DecodeError{MsgCode: code, Err: err}
}

// getBlockHeadersWire mirrors the wire shape of a GetBlockHeaders request.
// Origin stays raw until its width has been inspected: the protocol reuses
// one code for hash and number queries and expects the receiver to treat
// the first element as a hash exactly when it is 32 bytes wide. Reverse is
// carried as an integer, zero meaning false.
type getBlockHeadersWire struct {
	Origin     rlp.RawValue
	MaxHeaders uint64
	Skip       uint64
	Reverse    uint32
}

// Decode interprets data, an encoded RLP list, as the message carried by
// the given wire code. Codes outside the implemented range decode to
// Unknown without touching the payload, so peers speaking a newer protocol
// revision are tolerated rather than rejected.
func Decode(code uint64, data []byte) (Message, error) {
	switch code {
	case StatusMsg:
		var msg Status
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	case NewBlockHashesMsg:
		var msg NewBlockHashes
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	case TransactionsMsg:
		var msg Transactions
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	case GetBlockHeadersMsg:
		return decodeGetBlockHeaders(data)

	case BlockHeadersMsg:
		var msg BlockHeaders
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	case GetBlockBodiesMsg:
		var msg GetBlockBodies
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	case BlockBodiesMsg:
		var msg BlockBodies
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	case NewBlockMsg:
		var msg NewBlock
		if err := rlp.DecodeBytes(data, &msg); err != nil {
			return nil, decodeErr(code, err)
		}
		return msg, nil

	default:
		return Unknown{}, nil
	}
}

// decodeGetBlockHeaders resolves the hash-or-number ambiguity of message
// code 0x03. The wire format carries no tag: a first element of exactly 32
// payload bytes is taken for a hash, anything else for a block number.
// A number that happens to serialize to 32 bytes is thus misread as a
// hash; that is a known quirk of the protocol, not something to repair on
// this side of the wire.
func decodeGetBlockHeaders(data []byte) (Message, error) {
	var query getBlockHeadersWire
	if err := rlp.DecodeBytes(data, &query); err != nil {
		return nil, decodeErr(GetBlockHeadersMsg, err)
	}
	_, content, _, err := rlp.Split(query.Origin)
	if err != nil {
		return nil, decodeErr(GetBlockHeadersMsg, err)
	}
	if len(content) == common.HashLength {
		var hash common.Hash
		if err := rlp.DecodeBytes(query.Origin, &hash); err != nil {
			return nil, decodeErr(GetBlockHeadersMsg, err)
		}
		return GetBlockHeadersByHash{
			Hash:       hash,
			MaxHeaders: query.MaxHeaders,
			Skip:       query.Skip,
			Reverse:    query.Reverse != 0,
		}, nil
	}
	var number big.Int
	if err := rlp.DecodeBytes(query.Origin, &number); err != nil {
		return nil, decodeErr(GetBlockHeadersMsg, err)
	}
	return GetBlockHeadersByNumber{
		Number:     &number,
		MaxHeaders: query.MaxHeaders,
		Skip:       query.Skip,
		Reverse:    query.Reverse != 0,
	}, nil
}

// Encode produces the RLP payload for msg, the exact structural inverse of
// Decode: same field order, same list-versus-scalar shape, with boolean
// reverse flags written as 0 or 1.
func Encode(msg Message) (rlp.RawValue, error) {
	data, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, err
	}
	return data, nil
}
