// Package iacmetrics extracts static metrics from infrastructure-as-code files. Ansible playbooks,
// task files and TOSCA service templates are supported; both are YAML based and share a set of
// text metrics.
package iacmetrics
