// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import "os"

// Component names an independently-leveled logging subsystem.
type Component string

const (
	// ComponentTopology covers Cluster open/close and every topology
	// description change.
	ComponentTopology Component = "topology"

	// ComponentHeartbeat covers Monitor probe attempts: started, succeeded,
	// failed.
	ComponentHeartbeat Component = "serverHeartbeat"

	// ComponentServerSelection covers SelectServers attempts: started,
	// succeeded, timed out.
	ComponentServerSelection Component = "serverSelection"
)

type componentEnvVar string

const (
	componentEnvVarAll             componentEnvVar = "MONGODB_LOG_ALL"
	componentEnvVarTopology        componentEnvVar = "MONGODB_LOG_TOPOLOGY"
	componentEnvVarHeartbeat       componentEnvVar = "MONGODB_LOG_HEARTBEAT"
	componentEnvVarServerSelection componentEnvVar = "MONGODB_LOG_SERVER_SELECTION"
)

var allComponentEnvVars = []componentEnvVar{
	componentEnvVarAll,
	componentEnvVarTopology,
	componentEnvVarHeartbeat,
	componentEnvVarServerSelection,
}

func (e componentEnvVar) component() Component {
	switch e {
	case componentEnvVarTopology:
		return ComponentTopology
	case componentEnvVarHeartbeat:
		return ComponentHeartbeat
	case componentEnvVarServerSelection:
		return ComponentServerSelection
	default:
		return ""
	}
}

// getEnvComponentLevels returns a component-to-level mapping defined by the
// environment, with MONGODB_LOG_ALL taking priority over the per-component
// variables.
func getEnvComponentLevels() map[Component]Level {
	componentLevels := make(map[Component]Level)
	globalLevel := ParseLevel(os.Getenv(string(componentEnvVarAll)))

	for _, envVar := range allComponentEnvVars {
		if envVar == componentEnvVarAll {
			continue
		}

		level := globalLevel
		if globalLevel == LevelOff {
			level = ParseLevel(os.Getenv(string(envVar)))
		}

		componentLevels[envVar.component()] = level
	}

	return componentLevels
}

// selectComponentLevels merges component-to-level maps in priority order:
// the first getter to name a component wins.
func selectComponentLevels(getters ...func() map[Component]Level) map[Component]Level {
	selected := make(map[Component]Level)
	set := make(map[Component]struct{})

	for _, getComponentLevels := range getters {
		for component, level := range getComponentLevels() {
			if _, ok := set[component]; !ok {
				selected[component] = level
			}
			set[component] = struct{}{}
		}
	}

	return selected
}
