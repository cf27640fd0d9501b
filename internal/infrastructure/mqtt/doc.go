// Package mqtt connects FleetLock to an MQTT broker.
//
// MQTT is optional. When enabled, FleetLock mirrors its control events and
// accepts remote commands:
//
//	fleetlock/system/status          retained online/offline (LWT)
//	fleetlock/events/<channel>       device.registered, device.updated,
//	                                 device.lock_released, command.completed
//	fleetlock/command/<device>       {"action":"lock"} etc, see control.RemoteCommand
//
// The broker link is independent of the device protocol: a lost broker never
// stops the control loops.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	events := mqtt.NewEventPublisher(client, client.QoS(), 0, log)
//	events.Start(ctx)
//	defer events.Stop()
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), client.QoS(),
//	    mqtt.RemoteCommandHandler(controller))
package mqtt
