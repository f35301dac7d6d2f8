package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/mojify/internal/config"
	"github.com/rbright/mojify/internal/mapping"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "abc")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.TrimSpace(v) != "" },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	installStub(t, "fake-bin")

	check := checkCommand([]string{"fake-bin", "--arg"}, "clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckMapping(t *testing.T) {
	root := t.TempDir()
	mappingFile := filepath.Join(root, "emote_mapping.json")
	cfg := config.Default()
	cfg.Root = root
	cfg.MappingFile = mappingFile

	check := checkMapping(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "no triggers")

	table := mapping.NewTable()
	table.Set(":a:", "7tv_emotes/chan/a.gif")
	table.Set(":b:", "7tv_emotes/chan/b.gif")
	_, err := mapping.Save(mappingFile, table)
	require.NoError(t, err)

	check = checkMapping(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "2 of 2 assets missing")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "7tv_emotes", "chan"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "7tv_emotes", "chan", "a.gif"), []byte("GIF89a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "7tv_emotes", "chan", "b.gif"), []byte("GIF89a"), 0o644))

	check = checkMapping(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "2 triggers")
}

func TestCheckMappingInvalidFile(t *testing.T) {
	root := t.TempDir()
	mappingFile := filepath.Join(root, "emote_mapping.json")
	require.NoError(t, os.WriteFile(mappingFile, []byte("{nope"), 0o644))

	cfg := config.Default()
	cfg.Root = root
	cfg.MappingFile = mappingFile

	check := checkMapping(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "decode mapping")
}

func TestCheckKeyboardDevice(t *testing.T) {
	dir := t.TempDir()
	device := filepath.Join(dir, "platform-i8042-serio-0-event-kbd")
	require.NoError(t, os.WriteFile(device, nil, 0o600))

	check := checkKeyboard(config.KeyboardConfig{Source: config.KeyboardSourceEvdev, Device: filepath.Join(dir, "*-event-kbd")})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, device)

	check = checkKeyboard(config.KeyboardConfig{Source: config.KeyboardSourceEvdev, Device: filepath.Join(dir, "*-event-mouse")})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "no keyboard device matches")
}

func TestCheckProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/users/twitch/12345" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"emote_set":{"emotes":[{"name":"KEKW","data":{"host":{"url":"//cdn.7tv.app/emote/1","files":[{"name":"1x.webp"}]}}}]}}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().Provider
	cfg.BaseURL = server.URL + "/v3/users/twitch"
	cfg.ChannelIDs = []string{"12345", "67890"}

	check := checkProvider(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)
	require.Equal(t, "channel 12345 has 1 emotes", check.Message)

	cfg.ChannelIDs = []string{"missing"}
	check = checkProvider(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "404")
}

func TestCheckSoundFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkSound()
	require.False(t, check.Pass)
	require.Equal(t, "sound", check.Name)
}

func TestCheckProviderSkippedWithoutChannels(t *testing.T) {
	cfg := config.Default().Provider
	cfg.ChannelIDs = nil

	check := checkProvider(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "skipped")
}

func TestRunUsesKeyCmdForCommandBackend(t *testing.T) {
	installStub(t, "fake-keys")
	installStub(t, "copy_to_clipboard")

	cfg := config.Default()
	cfg.Root = t.TempDir()
	cfg.MappingFile = filepath.Join(cfg.Root, "emote_mapping.json")
	cfg.Keyboard.Device = filepath.Join(cfg.Root, "*-event-kbd")
	cfg.Keys.Backend = config.KeysBackendCommand
	cfg.Keys.Cmd = config.CommandConfig{Raw: "fake-keys", Argv: []string{"fake-keys"}}
	cfg.Provider.ChannelIDs = nil
	cfg.Indicator.SoundEnable = false

	report := Run(context.Background(), config.Loaded{Path: "/tmp/mojify.env", Config: cfg})
	require.NotEmpty(t, report.Checks)

	names := checkNames(report)
	require.Contains(t, names, "fake-keys")
	require.Contains(t, names, "copy_to_clipboard")
	require.NotContains(t, names, "hyprctl")
	require.False(t, report.OK())
}

func TestRunUsesHyprctlForHyprBackend(t *testing.T) {
	installStub(t, "hyprctl")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	cfg := config.Default()
	cfg.Root = t.TempDir()
	cfg.MappingFile = filepath.Join(cfg.Root, "emote_mapping.json")
	cfg.Keyboard.Device = filepath.Join(cfg.Root, "*-event-kbd")
	cfg.Provider.ChannelIDs = nil
	cfg.Indicator.SoundEnable = false

	report := Run(context.Background(), config.Loaded{Path: "/tmp/mojify.env", Config: cfg})

	var sawHypr, sawSignature bool
	for _, check := range report.Checks {
		switch check.Name {
		case "hyprctl":
			sawHypr = check.Pass
		case "HYPRLAND_INSTANCE_SIGNATURE":
			sawSignature = check.Pass
		}
	}
	require.True(t, sawHypr)
	require.True(t, sawSignature)
}

func checkNames(report Report) []string {
	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	return names
}

func installStub(t *testing.T, name string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
