package substrate

import (
	"fmt"

	apierr "tao_dividends_api/internal/errors"
)

type Network string

const (
	NetworkFinney Network = "finney"
	NetworkTest   Network = "test"
	NetworkLocal  Network = "local"
)

var supportedNetworks = map[Network]struct{}{
	NetworkFinney: {},
	NetworkTest:   {},
	NetworkLocal:  {},
}

func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if _, ok := supportedNetworks[n]; !ok {
		return "", apierr.Wrap(apierr.ErrInvalidNetwork, fmt.Errorf("network %q", s))
	}
	return n, nil
}

type Endpoint string

// EndpointResolver maps a network name to its node URL. It holds a copy
// of the table it was built with and never changes afterwards.
type EndpointResolver struct {
	endpoints map[Network]Endpoint
}

func NewEndpointResolver(table map[Network]string) *EndpointResolver {
	endpoints := make(map[Network]Endpoint, len(table))
	for n, url := range table {
		endpoints[n] = Endpoint(url)
	}
	return &EndpointResolver{endpoints: endpoints}
}

func (r *EndpointResolver) Resolve(network string) (Endpoint, error) {
	n, err := ParseNetwork(network)
	if err != nil {
		return "", err
	}
	ep, ok := r.endpoints[n]
	if !ok || ep == "" {
		return "", apierr.Wrap(apierr.ErrInvalidNetwork, fmt.Errorf("no endpoint configured for %q", n))
	}
	return ep, nil
}
