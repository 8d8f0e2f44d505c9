package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	apierr "tao_dividends_api/internal/errors"
)

// SubnetID is a subnet netuid. The ledger stores it as a u16.
type SubnetID uint16

func (s SubnetID) String() string { return strconv.FormatUint(uint64(s), 10) }

// ParseSubnetID accepts any Go integer kind, a json.Number or a decimal
// string. Anything else, including negative or out of range values, is
// ErrInvalidSubnet.
func ParseSubnetID(v interface{}) (SubnetID, error) {
	switch n := v.(type) {
	case SubnetID:
		return n, nil
	case int:
		return subnetFromInt(int64(n))
	case int8:
		return subnetFromInt(int64(n))
	case int16:
		return subnetFromInt(int64(n))
	case int32:
		return subnetFromInt(int64(n))
	case int64:
		return subnetFromInt(n)
	case uint:
		return subnetFromUint(uint64(n))
	case uint8:
		return subnetFromUint(uint64(n))
	case uint16:
		return SubnetID(n), nil
	case uint32:
		return subnetFromUint(uint64(n))
	case uint64:
		return subnetFromUint(n)
	case json.Number:
		return parseSubnetString(n.String())
	case string:
		return parseSubnetString(n)
	}
	return 0, apierr.Wrap(apierr.ErrInvalidSubnet, fmt.Errorf("unsupported netuid type %T", v))
}

func parseSubnetString(s string) (SubnetID, error) {
	u, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, apierr.Wrap(apierr.ErrInvalidSubnet, err)
	}
	return SubnetID(u), nil
}

func subnetFromInt(n int64) (SubnetID, error) {
	if n < 0 {
		return 0, apierr.Wrap(apierr.ErrInvalidSubnet, fmt.Errorf("negative netuid %d", n))
	}
	return subnetFromUint(uint64(n))
}

func subnetFromUint(n uint64) (SubnetID, error) {
	if n > math.MaxUint16 {
		return 0, apierr.Wrap(apierr.ErrInvalidSubnet, fmt.Errorf("netuid %d out of range", n))
	}
	return SubnetID(n), nil
}

// DividendRecord is the answer to one lookup. ServedFromCache describes the
// request that produced the value, never the stored copy.
type DividendRecord struct {
	Subnet          SubnetID `json:"netuid"`
	Account         string   `json:"hotkey"`
	Dividend        float64  `json:"dividend"`
	ServedFromCache bool     `json:"cached"`
	StakeTriggered  bool     `json:"stake_tx_triggered"`
}

type cachedRecord struct {
	Subnet         SubnetID `json:"subnet"`
	Account        string   `json:"account"`
	Dividend       float64  `json:"dividend"`
	StakeTriggered bool     `json:"stakeTriggered"`
}

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeRecord serializes r for the cache. ServedFromCache is not part of
// the payload.
func EncodeRecord(r DividendRecord) (string, error) {
	return codec.MarshalToString(cachedRecord{
		Subnet:         r.Subnet,
		Account:        r.Account,
		Dividend:       r.Dividend,
		StakeTriggered: r.StakeTriggered,
	})
}

// DecodeRecord is the inverse of EncodeRecord. The returned record has
// ServedFromCache set to false; the caller decides.
func DecodeRecord(payload string) (DividendRecord, error) {
	var c cachedRecord
	if err := codec.UnmarshalFromString(payload, &c); err != nil {
		return DividendRecord{}, err
	}
	return DividendRecord{
		Subnet:         c.Subnet,
		Account:        c.Account,
		Dividend:       c.Dividend,
		StakeTriggered: c.StakeTriggered,
	}, nil
}
