package iacmetrics

import "strings"

// TOSCA metric names.
const (
	metricNumImports               = "num_imports"
	metricNumInputs                = "num_inputs"
	metricNumOutputs               = "num_outputs"
	metricNumNodeTemplates         = "num_node_templates"
	metricNumRelationshipTemplates = "num_relationship_templates"
	metricNumNodeTypes             = "num_node_types"
	metricNumRelationshipTypes     = "num_relationship_types"
	metricNumCapabilityTypes       = "num_capability_types"
	metricNumArtifactTypes         = "num_artifact_types"
	metricNumDataTypes             = "num_data_types"
	metricNumPolicyTypes           = "num_policy_types"
	metricNumInterfaces            = "num_interfaces"
	metricNumProperties            = "num_properties"
	metricNumPolicies              = "num_policies"
	metricNumGroups                = "num_groups"
	metricNumShellScripts          = "num_shell_scripts"
	topologyTemplateKeyConstant    = "topology_template"
	interfacesKeyConstant          = "interfaces"
	propertiesKeyConstant          = "properties"
	shellScriptSuffixConstant      = ".sh"
)

var (
	toscaRootCollections = map[string]string{
		"imports":            metricNumImports,
		"node_types":         metricNumNodeTypes,
		"relationship_types": metricNumRelationshipTypes,
		"capability_types":   metricNumCapabilityTypes,
		"artifact_types":     metricNumArtifactTypes,
		"data_types":         metricNumDataTypes,
		"policy_types":       metricNumPolicyTypes,
	}

	toscaTopologyCollections = map[string]string{
		"inputs":                 metricNumInputs,
		"outputs":                metricNumOutputs,
		"node_templates":         metricNumNodeTemplates,
		"relationship_templates": metricNumRelationshipTemplates,
		"policies":               metricNumPolicies,
		"groups":                 metricNumGroups,
	}
)

func extractTOSCAMetrics(documents []any, metrics Metrics) {
	for _, metricName := range toscaRootCollections {
		metrics[metricName] = 0
	}
	for _, metricName := range toscaTopologyCollections {
		metrics[metricName] = 0
	}

	interfaces, properties, shellScripts := 0, 0, 0
	for _, document := range documents {
		root, _ := asMapping(document)
		for key, metricName := range toscaRootCollections {
			metrics[metricName] += float64(collectionSize(root[key]))
		}
		if topology, isMapping := asMapping(root[topologyTemplateKeyConstant]); isMapping {
			for key, metricName := range toscaTopologyCollections {
				metrics[metricName] += float64(collectionSize(topology[key]))
			}
		}

		visitMappings(document, func(mapping map[string]any) {
			interfaces += collectionSize(mapping[interfacesKeyConstant])
			properties += collectionSize(mapping[propertiesKeyConstant])
		})
		visitStrings(document, func(text string) {
			if strings.HasSuffix(strings.TrimSpace(text), shellScriptSuffixConstant) {
				shellScripts++
			}
		})
	}

	metrics[metricNumInterfaces] = float64(interfaces)
	metrics[metricNumProperties] = float64(properties)
	metrics[metricNumShellScripts] = float64(shellScripts)
}
