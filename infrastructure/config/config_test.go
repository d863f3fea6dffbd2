package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/domain/chainparams"
)

func TestLoadConfigDefaults(t *testing.T) {
	appDir, err := ioutil.TempDir("", "ibdsync")
	if err != nil {
		t.Fatalf("Failed creating a temporary directory: %v", err)
	}
	defer os.RemoveAll(appDir)

	cfg, err := LoadConfig([]string{"--configfile", filepath.Join(appDir, "missing.conf"), "--appdir", appDir, "--connect", "127.0.0.1"})
	if err != nil {
		t.Fatalf("LoadConfig: %+v", err)
	}
	if cfg.NetParams() != chainparams.MainnetParams {
		t.Errorf("expected mainnet by default, got %s", cfg.NetParams().Name)
	}
	if cfg.TargetHeaders != common.DefaultTargetHeaderCount {
		t.Errorf("expected %d target headers, got %d", common.DefaultTargetHeaderCount, cfg.TargetHeaders)
	}
	if cfg.WindowSize != common.DefaultWindowSize {
		t.Errorf("expected a window of %d, got %d", common.DefaultWindowSize, cfg.WindowSize)
	}
	if cfg.ResponseTimeout != common.DefaultTimeout {
		t.Errorf("expected a timeout of %s, got %s", common.DefaultTimeout, cfg.ResponseTimeout)
	}
	expectedLogDir := filepath.Join(appDir, defaultLogDirname, chainparams.MainnetParams.Name)
	if cfg.LogDir != expectedLogDir {
		t.Errorf("expected log dir %s, got %s", expectedLogDir, cfg.LogDir)
	}
	if cfg.PeerAddress() != "127.0.0.1:"+chainparams.MainnetParams.DefaultPort {
		t.Errorf("expected the default port to be appended, got %s", cfg.PeerAddress())
	}
	if cfg.Dial == nil {
		t.Errorf("expected a dial function")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NetParams() != chainparams.MainnetParams {
		t.Fatalf("expected mainnet by default, got %v", cfg.NetParams())
	}
	cfg.Connect = "127.0.0.1"
	if cfg.PeerAddress() != "127.0.0.1:"+chainparams.MainnetParams.DefaultPort {
		t.Errorf("expected the mainnet port to be appended, got %s", cfg.PeerAddress())
	}
	if cfg.Dial == nil {
		t.Errorf("expected a dial function")
	}
}

func TestLoadConfigFileAndOverrides(t *testing.T) {
	appDir, err := ioutil.TempDir("", "ibdsync")
	if err != nil {
		t.Fatalf("Failed creating a temporary directory: %v", err)
	}
	defer os.RemoveAll(appDir)

	configFile := filepath.Join(appDir, "ibdsync.conf")
	contents := "[Application Options]\nconnect=10.0.0.1:18444\nwindowsize=25\nregtest=true\n"
	err = ioutil.WriteFile(configFile, []byte(contents), 0600)
	if err != nil {
		t.Fatalf("Failed writing config file: %v", err)
	}

	cfg, err := LoadConfig([]string{"--configfile", configFile, "--appdir", appDir,
		"--windowsize", "5", "--timeout", "5s", "--targetheaders", "25", "--proxy", "127.0.0.1:9050"})
	if err != nil {
		t.Fatalf("LoadConfig: %+v", err)
	}
	if cfg.NetParams() != chainparams.RegtestParams {
		t.Errorf("expected regtest from the config file, got %s", cfg.NetParams().Name)
	}
	if cfg.WindowSize != 5 {
		t.Errorf("expected the command line to override windowsize, got %d", cfg.WindowSize)
	}
	if cfg.ResponseTimeout != 5*time.Second || cfg.TargetHeaders != 25 {
		t.Errorf("unexpected timeout %s or target %d", cfg.ResponseTimeout, cfg.TargetHeaders)
	}
	if cfg.PeerAddress() != "10.0.0.1:18444" {
		t.Errorf("expected the configured port to be kept, got %s", cfg.PeerAddress())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing peer", []string{}},
		{"two networks", []string{"--connect", "localhost", "--testnet", "--simnet"}},
		{"zero window", []string{"--connect", "localhost", "--windowsize", "0"}},
		{"zero target", []string{"--connect", "localhost", "--targetheaders", "0"}},
		{"bad proxy", []string{"--connect", "localhost", "--proxy", "nope"}},
		{"bad debug level", []string{"--connect", "localhost", "--debuglevel", "loud"}},
	}
	for _, test := range tests {
		appDir, err := ioutil.TempDir("", "ibdsync")
		if err != nil {
			t.Fatalf("Failed creating a temporary directory: %v", err)
		}
		args := append([]string{"--configfile", filepath.Join(appDir, "missing.conf")}, test.args...)
		_, err = LoadConfig(args)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
		os.RemoveAll(appDir)
	}
}
