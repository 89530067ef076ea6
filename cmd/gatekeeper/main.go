package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gatekeeper/internal/bleradio"
	"gatekeeper/internal/configstore"
	"gatekeeper/internal/engine"
	"gatekeeper/internal/ids"
	"gatekeeper/internal/mqttbus"
	"gatekeeper/internal/publish"
	"gatekeeper/internal/status"
	"gatekeeper/internal/util"
)

func main() {
	var (
		dataDirFlag      = flag.String("data-dir", "./data", "Config/satellite/device store directory")
		mqttBrokerFlag   = flag.String("mqtt-broker", "", "MQTT broker URL (e.g. tcp://localhost:1883); overrides stored config if set")
		mqttUserFlag     = flag.String("mqtt-username", "", "MQTT username; overrides stored config if set")
		mqttPassFlag     = flag.String("mqtt-password", "", "MQTT password; overrides stored config if set")
		mqttClientIDFlag = flag.String("client-id", "", "MQTT client id (generated if empty)")
		identityFlag     = flag.String("identity", "", "Topic identity segment; overrides stored config if set")
		prefixFlag       = flag.String("prefix", "", "Topic prefix; overrides stored config if set")
		localAdapterFlag = flag.String("local-adapter", "", "Local Bluetooth adapter id for hub scanning (default adapter if empty)")
		statsInterval    = flag.Int("stats-interval", 5, "Console status interval in seconds")
		logFileFlag      = flag.String("log-file", "gatekeeper.log", "Path to the log file")
	)
	flag.Parse()

	logFile, err := os.OpenFile(*logFileFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	printLogo()

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	store, err := configstore.Open(strings.TrimSpace(*dataDirFlag))
	if err != nil {
		util.Linef("[ERROR]", util.ColorYellow, "failed to open config store: %v", err)
		os.Exit(1)
	}

	resolver, err := ids.Load(ids.LoadConfig{DataDir: strings.TrimSpace(*dataDirFlag)})
	if err != nil {
		util.Linef("[WARN]", util.ColorYellow, "failed to load vendor name data: %v", err)
	}

	mqttCfg := store.LoadMQTT()
	if *mqttBrokerFlag != "" {
		mqttCfg.Broker = *mqttBrokerFlag
	}
	if *mqttUserFlag != "" {
		mqttCfg.Username = *mqttUserFlag
	}
	if *mqttPassFlag != "" {
		mqttCfg.Password = *mqttPassFlag
	}
	if *identityFlag != "" {
		mqttCfg.Identity = *identityFlag
	}
	if *prefixFlag != "" {
		mqttCfg.Prefix = *prefixFlag
	}
	if mqttCfg.Broker == "" {
		util.Line("[ERROR]", util.ColorYellow, "no MQTT broker configured (set -mqtt-broker or data-dir/mqtt.json)")
		os.Exit(1)
	}
	if mqttCfg.Prefix == "" {
		mqttCfg.Prefix = "gatekeeper"
	}
	if mqttCfg.Identity == "" {
		mqttCfg.Identity = "gatekeeper"
	}

	bus, err := mqttbus.Connect(mqttbus.Config{
		Broker:   mqttCfg.Broker,
		Username: mqttCfg.Username,
		Password: mqttCfg.Password,
		ClientID: strings.TrimSpace(*mqttClientIDFlag),
	})
	if err != nil {
		util.Linef("[ERROR]", util.ColorYellow, "failed to connect to MQTT broker: %v", err)
		os.Exit(1)
	}
	defer bus.Disconnect()

	pub := publish.New(bus, mqttCfg.Prefix, mqttCfg.Identity)

	settings := store.LoadSettings()
	cfg := engine.DefaultConfig()
	cfg.Zoning.AbsenceTimeout = time.Duration(settings.PrefBeaconExpiration) * time.Second

	eng := engine.New(store, pub, cfg, resolver)

	pub.PublishStartupStatus()
	eng.PublishDiscoveryNow()

	// localCh and satelliteCh are the only two cross-thread handoff
	// points into the engine's single cooperative loop (spec.md §5):
	// the radio worker and the MQTT client's own callback goroutine
	// each only ever post onto their channel, never touch engine state
	// directly, so ingestion, inbound dispatch and the maintenance
	// timer all run strictly on the one loop goroutine below.
	localCh := make(chan bleradio.Record, 64)
	go func() {
		if err := bleradio.Scan(ctx, strings.TrimSpace(*localAdapterFlag), localCh); err != nil && ctx.Err() == nil {
			util.Linef("[HUB]", util.ColorYellow, "local scan stopped: %v", err)
		}
	}()

	satelliteCh := make(chan mqttbus.Observation, 256)
	satelliteTopic := fmt.Sprintf("%s/satellite/#", mqttCfg.Prefix)
	if err := bus.Subscribe(satelliteTopic, func(topic string, payload []byte) {
		obs, ok := mqttbus.ParseTopic(mqttCfg.Prefix, topic, payload)
		if !ok {
			log.Printf("[MQTT] ignoring malformed message on %s", topic)
			return
		}
		select {
		case satelliteCh <- obs:
		case <-ctx.Done():
		}
	}); err != nil {
		util.Linef("[ERROR]", util.ColorYellow, "failed to subscribe to %s: %v", satelliteTopic, err)
		os.Exit(1)
	}

	go status.Run(ctx, time.Duration(*statsInterval)*time.Second, status.Provider{Engine: eng})

	eng.Run(ctx, localCh, satelliteCh, 2*time.Second)
	util.Line("[EXIT]", util.ColorGray, "stopping")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		select {
		case <-ch:
		default:
		}
	}()
	return ctx, cancel
}

func printLogo() {
	logo := `
    _/_/_/    _/  _/_/_/    _/        _/_/_/_/
   _/    _/      _/    _/  _/        _/
  _/_/_/    _/  _/_/_/    _/        _/_/_/
 _/        _/  _/    _/  _/        _/
_/        _/  _/_/_/    _/_/_/_/  _/_/_/_/
`
	fmt.Println(logo)
	fmt.Println("Gatekeeper - BLE presence tracking hub")
}
