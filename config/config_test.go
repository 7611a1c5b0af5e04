package config

import "testing"

func TestLoadIsFatalWithNoAdapterCredentials(t *testing.T) {
	clearAdapterEnv(t)
	_, report := Load()
	if report.FatalError == "" {
		t.Fatal("expected a fatal error with zero adapter credentials configured")
	}
}

func TestLoadIsViableWithOneAdapter(t *testing.T) {
	clearAdapterEnv(t)
	t.Setenv("TICKETMASTER_API_KEY", "test-key")
	cfg, report := Load()
	if !report.Viable(2) {
		t.Fatal("expected viable configuration with one adapter's credentials present")
	}
	if !cfg.Ticketmaster.present() {
		t.Fatal("expected ticketmaster credentials to be recognized as present")
	}
	found := false
	for _, skipped := range report.SkippedAdapters {
		if skipped == "stubhub" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected stubhub to be reported as skipped")
	}
}

func TestCitiesAreLowercasedAndTrimmed(t *testing.T) {
	clearAdapterEnv(t)
	t.Setenv("TICKETMASTER_API_KEY", "k")
	t.Setenv("SNIPER_CITIES", " Portland , SEATTLE,denver ")
	cfg, _ := Load()
	want := []string{"portland", "seattle", "denver"}
	if len(cfg.Cities) != len(want) {
		t.Fatalf("expected %d cities, got %v", len(want), cfg.Cities)
	}
	for i, c := range want {
		if cfg.Cities[i] != c {
			t.Errorf("city %d: got %q, want %q", i, cfg.Cities[i], c)
		}
	}
}

func clearAdapterEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TICKETMASTER_API_KEY", "STUBHUB_CLIENT_ID", "STUBHUB_CLIENT_SECRET",
		"SEATGEEK_CLIENT_ID", "SEATGEEK_CLIENT_SECRET", "APIFY_TOKEN", "APIFY_GOOGLE_EVENTS_ACTOR_ID",
	} {
		t.Setenv(key, "")
	}
}
