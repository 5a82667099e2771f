package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/tedkimdev/nft-staking/internal/clients/apiclient"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/program"
)

// loadClientConfig resolves where the server is. --url wins, then the client
// section of the config file, then the server section of the same file.
func loadClientConfig() (*config.ClientConfig, error) {
	var clientCfg *config.ClientConfig

	switch {
	case serverURL != "":
		clientCfg = &config.ClientConfig{URL: serverURL}
	default:
		cfg, err := config.New(GetConfigPath())
		if err != nil {
			return nil, fmt.Errorf("no --url given and config could not be loaded: %w", err)
		}
		if cfg.Client != nil {
			clientCfg = cfg.Client
		} else {
			host := cfg.Server.Host
			if host == "0.0.0.0" || host == "" {
				host = "127.0.0.1"
			}
			clientCfg = &config.ClientConfig{URL: fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)}
		}
	}

	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}
	return clientCfg, nil
}

func newApiClient() (*apiclient.Client, *config.ClientConfig, error) {
	cfg, err := loadClientConfig()
	if err != nil {
		return nil, nil, err
	}
	return apiclient.NewClient(cfg), cfg, nil
}

// newProgramClient returns a client signing with the configured keypair for
// the program the server runs
func newProgramClient(ctx context.Context) (*program.Client, *apiclient.Client, error) {
	api, cfg, err := newApiClient()
	if err != nil {
		return nil, nil, err
	}

	path := keypairPath
	if !rootCmd.PersistentFlags().Changed("keypair") && cfg.KeypairPath != "" {
		path = cfg.KeypairPath
	}
	signer, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}

	prog, err := api.GetProgram(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get program id: %w", err)
	}
	programID, err := parsePublicKey("program id", prog.ProgramID)
	if err != nil {
		return nil, nil, err
	}

	c := program.NewClient(api, programID, signer, program.WithRetry(cfg.MaxRetryTimes, cfg.RetryInterval))
	return c, api, nil
}

func parsePublicKey(name, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return key, nil
}

// parseOwnerAndAsset reads "<asset>" or "<owner> <asset>". The owner defaults
// to the signer.
func parseOwnerAndAsset(signer solana.PublicKey, args []string) (solana.PublicKey, solana.PublicKey, error) {
	switch len(args) {
	case 1:
		asset, err := parsePublicKey("asset", args[0])
		return signer, asset, err
	case 2:
		owner, err := parsePublicKey("owner", args[0])
		if err != nil {
			return solana.PublicKey{}, solana.PublicKey{}, err
		}
		asset, err := parsePublicKey("asset", args[1])
		return owner, asset, err
	}
	return solana.PublicKey{}, solana.PublicKey{}, errors.New("expected [owner] <asset>")
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func dump(w io.Writer, v any) {
	dumper.Fdump(w, v)
}
