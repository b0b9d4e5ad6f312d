package provisioner

import (
	"context"
	"fmt"
	"time"

	"github.com/nasir19noor/aws-cdk/awsd/models"
	"github.com/nasir19noor/aws-cdk/errors"
	"github.com/nasir19noor/aws-cdk/stack"
)

// poll runs check up to maxRetries times, sleeping retryDelay between
// attempts. check returns done=true to stop, or an error to abort.
func (s *Service) poll(ctx context.Context, what string, check func(ctx context.Context) (bool, error)) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return errors.New(errors.ErrApply, "timed out waiting for "+what,
		map[string]interface{}{
			"retries": s.maxRetries,
		}, nil)
}

// waitForNatGateway blocks until the NAT gateway is available. Routes to a
// pending gateway are rejected by the API, so this gates private routing.
func (s *Service) waitForNatGateway(ctx context.Context, natID string) error {
	return s.poll(ctx, "NAT gateway "+natID, func(ctx context.Context) (bool, error) {
		state, err := s.cloud.NatGatewayState(ctx, natID)
		if err != nil {
			return false, err
		}
		switch state {
		case "available":
			return true, nil
		case "failed":
			return false, errors.New(errors.ErrApply, "NAT gateway entered failed state",
				map[string]interface{}{
					"nat_id": natID,
				}, nil)
		}
		return false, nil
	})
}

func (s *Service) waitForNatGatewayGone(ctx context.Context, natID string) error {
	return s.poll(ctx, "NAT gateway deletion "+natID, func(ctx context.Context) (bool, error) {
		state, err := s.cloud.NatGatewayState(ctx, natID)
		if err != nil {
			return false, err
		}
		return state == "" || state == "deleted", nil
	})
}

// waitForInstance blocks until the instance is running with a public
// address assigned, then returns its description. The boot script's outcome
// is not part of this wait; a created instance counts as success even if
// the script later fails.
func (s *Service) waitForInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error) {
	var instance *models.AWSInstance
	err := s.poll(ctx, "instance "+instanceID, func(ctx context.Context) (bool, error) {
		described, err := s.cloud.DescribeInstance(ctx, instanceID)
		if err != nil {
			return false, err
		}
		if described.State == "running" && described.PublicIP != "" && described.PublicDnsName != "" {
			instance = described
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *Service) waitForInstanceGone(ctx context.Context, instanceID string) error {
	return s.poll(ctx, "instance termination "+instanceID, func(ctx context.Context) (bool, error) {
		described, err := s.cloud.DescribeInstance(ctx, instanceID)
		if err != nil {
			return false, err
		}
		return described.State == "terminated", nil
	})
}

// resolveOutputs fills the stack's output bindings from the provisioned
// resources, preserving declaration order.
func resolveOutputs(st *stack.Stack, result *models.ProvisionedStack, instance *models.AWSInstance) ([]models.Output, error) {
	outputs := make([]models.Output, 0, len(st.Outputs))
	for _, binding := range st.Outputs {
		var value string
		switch binding.Source {
		case stack.SourceVPCID:
			value = result.VpcID
		case stack.SourceInternetGatewayID:
			value = result.InternetGatewayID
		case stack.SourcePublicSubnetID:
			value = result.PublicSubnetIDs[0]
		case stack.SourceSecurityGroupID:
			value = result.SecurityGroupID
		case stack.SourceInstanceID:
			value = result.InstanceID
		case stack.SourceInstancePublicIP:
			value = instance.PublicIP
		case stack.SourceInstancePublicDNS:
			value = instance.PublicDnsName
		default:
			return nil, fmt.Errorf("unknown output source %q for output %s", binding.Source, binding.Name)
		}
		if value == "" {
			return nil, fmt.Errorf("output %s resolved to an empty value", binding.Name)
		}
		outputs = append(outputs, models.Output{
			Name:        binding.Name,
			Value:       value,
			Description: binding.Description,
		})
	}
	return outputs, nil
}
