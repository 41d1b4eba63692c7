package iacmetrics

import (
	"regexp"
	"sort"
	"strings"
)

// Ansible metric names.
const (
	metricNumPlays               = "num_plays"
	metricNumTasks               = "num_tasks"
	metricNumBlocks              = "num_blocks"
	metricNumBlocksErrorHandling = "num_blocks_error_handling"
	metricNumRoles               = "num_roles"
	metricNumConditions          = "num_conditions"
	metricNumLoops               = "num_loops"
	metricNumVars                = "num_vars"
	metricNumPrompts             = "num_prompts"
	metricNumParameters          = "num_parameters"
	metricNumFileModules         = "num_file_modules"
	metricNumCommandModules      = "num_command_modules"
	metricNumInclude             = "num_include"
	metricNumIgnoreErrors        = "num_ignore_errors"
	metricNumNamesWithVars       = "num_names_with_vars"
	metricNumFilters             = "num_filters"
	metricNumMathOperations      = "num_math_operations"
	metricAverageTaskSize        = "avg_task_size"
	playHostsKeyConstant         = "hosts"
	importPlaybookKeyConstant    = "import_playbook"
	blockKeyConstant             = "block"
	rescueKeyConstant            = "rescue"
	alwaysKeyConstant            = "always"
	nameKeyConstant              = "name"
	rolesKeyConstant             = "roles"
	varsKeyConstant              = "vars"
	varsPromptKeyConstant        = "vars_prompt"
	registerKeyConstant          = "register"
	ignoreErrorsKeyConstant      = "ignore_errors"
	argsKeyConstant              = "args"
	loopKeyConstant              = "loop"
	loopPrefixConstant           = "with_"
	localActionKeyConstant       = "local_action"
	actionKeyConstant            = "action"
	moduleKeyConstant            = "module"
	setFactModuleConstant        = "set_fact"
	pauseModuleConstant          = "pause"
	promptParameterConstant      = "prompt"
	cacheableParameterConstant   = "cacheable"
	templateMarkerConstant       = "{{"
	conjunctionAndConstant       = " and "
	conjunctionOrConstant        = " or "
	parameterAssignmentConstant  = "="
	collectionSeparatorConstant  = "."
	filterOperatorConstant       = "|"
	logicalOrOperatorConstant    = "||"
	truthyYesConstant            = "yes"
	truthyTrueConstant           = "true"
	truthyOnConstant             = "on"
	includeRoleModuleConstant    = "include_role"
	importRoleModuleConstant     = "import_role"
)

var (
	taskSections = []string{"pre_tasks", "tasks", "post_tasks", "handlers"}

	conditionKeys = map[string]struct{}{
		"when": {}, "failed_when": {}, "changed_when": {}, "until": {},
	}

	taskKeywords = map[string]struct{}{
		"name": {}, "when": {}, "loop": {}, "loop_control": {}, "register": {}, "tags": {}, "become": {},
		"become_user": {}, "become_method": {}, "become_flags": {}, "vars": {}, "notify": {}, "listen": {},
		"ignore_errors": {}, "ignore_unreachable": {}, "failed_when": {}, "changed_when": {}, "until": {},
		"retries": {}, "delay": {}, "delegate_to": {}, "delegate_facts": {}, "run_once": {}, "no_log": {},
		"environment": {}, "args": {}, "block": {}, "rescue": {}, "always": {}, "check_mode": {}, "diff": {},
		"async": {}, "poll": {}, "any_errors_fatal": {}, "connection": {}, "throttle": {}, "timeout": {},
		"collections": {}, "module_defaults": {}, "debugger": {}, "remote_user": {}, "port": {},
	}

	fileModules = map[string]struct{}{
		"file": {}, "copy": {}, "template": {}, "lineinfile": {}, "blockinfile": {}, "fetch": {},
		"unarchive": {}, "synchronize": {}, "stat": {}, "find": {}, "replace": {}, "assemble": {},
		"acl": {}, "archive": {}, "tempfile": {}, "slurp": {},
	}

	commandModules = map[string]struct{}{
		"command": {}, "shell": {}, "raw": {}, "script": {}, "expect": {},
	}

	includeModules = map[string]struct{}{
		"include": {}, "include_tasks": {}, "import_tasks": {}, "include_vars": {},
		"include_role": {}, "import_role": {}, "import_playbook": {}, "include_playbook": {},
	}

	jinjaExpressionPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)
	mathOperationPattern   = regexp.MustCompile(`\s(\*\*|//|\+|-|\*|/|%)\s`)
)

type ansibleCounter struct {
	plays, tasks, blocks, blocksErrorHandling, roles              int
	conditions, loops, vars, prompts, parameters                  int
	fileModules, commandModules, includes, ignoreErrors, nameVars int
}

func extractAnsibleMetrics(documents []any, metrics Metrics) {
	counter := &ansibleCounter{}
	for _, document := range documents {
		for _, item := range asSequence(document) {
			mapping, isMapping := asMapping(item)
			if !isMapping {
				continue
			}
			if isPlay(mapping) {
				counter.visitPlay(mapping)
			} else {
				counter.visitTask(mapping)
			}
		}
	}

	filters, mathOperations := 0, 0
	for _, document := range documents {
		visitStrings(document, func(text string) {
			for _, match := range jinjaExpressionPattern.FindAllStringSubmatch(text, -1) {
				expression := match[1]
				filters += strings.Count(expression, filterOperatorConstant) - 2*strings.Count(expression, logicalOrOperatorConstant)
				mathOperations += len(mathOperationPattern.FindAllString(expression, -1))
			}
		})
	}

	metrics[metricNumPlays] = float64(counter.plays)
	metrics[metricNumTasks] = float64(counter.tasks)
	metrics[metricNumBlocks] = float64(counter.blocks)
	metrics[metricNumBlocksErrorHandling] = float64(counter.blocksErrorHandling)
	metrics[metricNumRoles] = float64(counter.roles)
	metrics[metricNumConditions] = float64(counter.conditions)
	metrics[metricNumLoops] = float64(counter.loops)
	metrics[metricNumVars] = float64(counter.vars)
	metrics[metricNumPrompts] = float64(counter.prompts)
	metrics[metricNumParameters] = float64(counter.parameters)
	metrics[metricNumFileModules] = float64(counter.fileModules)
	metrics[metricNumCommandModules] = float64(counter.commandModules)
	metrics[metricNumInclude] = float64(counter.includes)
	metrics[metricNumIgnoreErrors] = float64(counter.ignoreErrors)
	metrics[metricNumNamesWithVars] = float64(counter.nameVars)
	metrics[metricNumFilters] = float64(filters)
	metrics[metricNumMathOperations] = float64(mathOperations)
	metrics[metricAverageTaskSize] = 0
	if counter.tasks > 0 {
		metrics[metricAverageTaskSize] = metrics[metricLinesCode] / float64(counter.tasks)
	}
}

func isPlay(mapping map[string]any) bool {
	_, hasHosts := mapping[playHostsKeyConstant]
	_, importsPlaybook := mapping[importPlaybookKeyConstant]
	return hasHosts || importsPlaybook
}

func (counter *ansibleCounter) visitPlay(play map[string]any) {
	if _, importsPlaybook := play[importPlaybookKeyConstant]; importsPlaybook {
		counter.includes++
		return
	}

	counter.plays++
	counter.visitCommonKeys(play)
	counter.roles += len(asSequence(play[rolesKeyConstant]))
	counter.prompts += len(asSequence(play[varsPromptKeyConstant]))
	for _, section := range taskSections {
		counter.visitTaskList(play[section])
	}
}

func (counter *ansibleCounter) visitTaskList(value any) {
	for _, item := range asSequence(value) {
		if task, isMapping := asMapping(item); isMapping {
			counter.visitTask(task)
		}
	}
}

func (counter *ansibleCounter) visitTask(task map[string]any) {
	counter.visitCommonKeys(task)

	if blockTasks, isBlock := task[blockKeyConstant]; isBlock {
		counter.blocks++
		_, hasRescue := task[rescueKeyConstant]
		_, hasAlways := task[alwaysKeyConstant]
		if hasRescue || hasAlways {
			counter.blocksErrorHandling++
		}
		counter.visitTaskList(blockTasks)
		counter.visitTaskList(task[rescueKeyConstant])
		counter.visitTaskList(task[alwaysKeyConstant])
		return
	}

	counter.tasks++
	moduleName, moduleArguments := detectModule(task)
	if len(moduleName) == 0 {
		return
	}

	parameterCount := countParameters(moduleArguments) + collectionSize(task[argsKeyConstant])
	counter.parameters += parameterCount

	if _, isFileModule := fileModules[moduleName]; isFileModule {
		counter.fileModules++
	}
	if _, isCommandModule := commandModules[moduleName]; isCommandModule {
		counter.commandModules++
	}
	if _, isInclude := includeModules[moduleName]; isInclude {
		counter.includes++
	}

	switch moduleName {
	case includeRoleModuleConstant, importRoleModuleConstant:
		counter.roles++
	case setFactModuleConstant:
		if factMapping, isMapping := asMapping(moduleArguments); isMapping {
			for factName := range factMapping {
				if factName != cacheableParameterConstant {
					counter.vars++
				}
			}
		}
	case pauseModuleConstant:
		if pauseMapping, isMapping := asMapping(moduleArguments); isMapping {
			if _, prompts := pauseMapping[promptParameterConstant]; prompts {
				counter.prompts++
			}
		}
	}
}

// visitCommonKeys counts keywords shared by plays, blocks and tasks.
func (counter *ansibleCounter) visitCommonKeys(mapping map[string]any) {
	for key, value := range mapping {
		if _, isCondition := conditionKeys[key]; isCondition {
			counter.conditions += countConditions(value)
		}
		if key == loopKeyConstant || strings.HasPrefix(key, loopPrefixConstant) {
			counter.loops++
		}
	}

	counter.vars += collectionSize(mapping[varsKeyConstant])
	if _, registers := mapping[registerKeyConstant]; registers {
		counter.vars++
	}
	if isTruthy(mapping[ignoreErrorsKeyConstant]) {
		counter.ignoreErrors++
	}
	if name, isString := mapping[nameKeyConstant].(string); isString && strings.Contains(name, templateMarkerConstant) {
		counter.nameVars++
	}
}

// detectModule returns the normalized module name of a task and its arguments.
func detectModule(task map[string]any) (string, any) {
	for _, actionKey := range []string{localActionKeyConstant, actionKeyConstant} {
		if action, declared := task[actionKey]; declared {
			return moduleFromAction(action)
		}
	}

	keys := make([]string, 0, len(task))
	for key := range task {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, isKeyword := taskKeywords[key]; isKeyword || strings.HasPrefix(key, loopPrefixConstant) {
			continue
		}
		return normalizeModuleName(key), task[key]
	}
	return "", nil
}

func moduleFromAction(action any) (string, any) {
	if actionMapping, isMapping := asMapping(action); isMapping {
		moduleName, _ := actionMapping[moduleKeyConstant].(string)
		arguments := make(map[string]any, len(actionMapping))
		for key, value := range actionMapping {
			if key != moduleKeyConstant {
				arguments[key] = value
			}
		}
		return normalizeModuleName(moduleName), arguments
	}
	actionText, _ := action.(string)
	fields := strings.Fields(actionText)
	if len(fields) == 0 {
		return "", nil
	}
	return normalizeModuleName(fields[0]), strings.Join(fields[1:], " ")
}

func normalizeModuleName(moduleName string) string {
	trimmedName := strings.TrimSpace(moduleName)
	if separatorIndex := strings.LastIndex(trimmedName, collectionSeparatorConstant); separatorIndex >= 0 {
		return trimmedName[separatorIndex+1:]
	}
	return trimmedName
}

func countParameters(arguments any) int {
	if argumentText, isString := arguments.(string); isString {
		parameters := 0
		for _, field := range strings.Fields(argumentText) {
			if strings.Contains(field, parameterAssignmentConstant) {
				parameters++
			}
		}
		return parameters
	}
	return collectionSize(arguments)
}

func countConditions(value any) int {
	if sequence := asSequence(value); sequence != nil {
		total := 0
		for _, item := range sequence {
			total += countConditions(item)
		}
		return total
	}
	expression, isString := value.(string)
	if !isString {
		return 1
	}
	return 1 + strings.Count(expression, conjunctionAndConstant) + strings.Count(expression, conjunctionOrConstant)
}

func isTruthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case truthyYesConstant, truthyTrueConstant, truthyOnConstant:
			return true
		}
	}
	return false
}
