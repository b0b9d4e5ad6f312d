package stack

import (
	"strings"
)

// BootScript is the ordered command sequence executed once at first boot.
// Failures at boot time are not reported back to the provisioner; the
// instance is considered created as soon as the API accepts the launch.
type BootScript struct {
	Commands []string
}

// Render produces the user-data shell payload for a Linux instance.
func (b BootScript) Render() string {
	if len(b.Commands) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")
	for _, cmd := range b.Commands {
		sb.WriteString(cmd)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WebServerBootScript installs and enables Apache and writes the greeting
// page, in the order update, install, start, enable, write.
func WebServerBootScript() BootScript {
	return BootScript{
		Commands: []string{
			"yum update -y",
			"yum install -y httpd",
			"systemctl start httpd",
			"systemctl enable httpd",
			"echo '<h1>Hello from AWS CDK!</h1>' > /var/www/html/index.html",
		},
	}
}
