// Package provisioner turns a validated stack declaration into live cloud
// resources. Apply is idempotent: resources are looked up by stack tag
// before creation, and everything created in a failed apply is rolled back
// in reverse order.
package provisioner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/awsd"
	"github.com/nasir19noor/aws-cdk/awsd/models"
	"github.com/nasir19noor/aws-cdk/configuration"
	"github.com/nasir19noor/aws-cdk/errors"
	"github.com/nasir19noor/aws-cdk/stack"
)

// Service provisions and destroys single-stack topologies.
type Service struct {
	cloud      CloudClient
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewService creates a provisioning service backed by the given cloud client
func NewService(cloud CloudClient, config *configuration.Config, logger *zap.Logger) *Service {
	return &Service{
		cloud:      cloud,
		logger:     logger,
		maxRetries: config.MaxRetries,
		retryDelay: time.Duration(config.RetryDelay) * time.Second,
	}
}

// undoFunc reverts one resource created during the current apply. Reused
// resources never get an undo entry.
type undoFunc func(ctx context.Context) error

// Apply provisions the declared topology in dependency order and returns
// the resolved output bindings. Preconditions that need no resources —
// availability zones, machine image, key pair — are checked first, so a
// missing credential fails before anything is created.
func (s *Service) Apply(ctx context.Context, st *stack.Stack) (*models.ProvisionedStack, error) {
	logger := s.logger.With(
		zap.String("function", "Apply"),
		zap.String("stack", st.Name),
	)

	logger.Info("Apply started",
		zap.String("operation", "apply_start"),
	)

	azs, err := s.cloud.AvailabilityZones(ctx, st.Network.MaxAZs)
	if err != nil {
		return nil, errors.New(errors.ErrApply, "availability zone lookup failed",
			map[string]interface{}{
				"stack": st.Name,
			}, err)
	}

	imageID, err := s.cloud.ResolveImage(ctx, st.Image)
	if err != nil {
		return nil, err
	}

	exists, err := s.cloud.KeyPairExists(ctx, st.Instance.KeyName)
	if err != nil {
		return nil, errors.New(errors.ErrApply, "key pair lookup failed",
			map[string]interface{}{
				"key_name": st.Instance.KeyName,
			}, err)
	}
	if !exists {
		return nil, errors.New(errors.ErrKeyPairMissing, "key pair not found in target account/region",
			map[string]interface{}{
				"key_name": st.Instance.KeyName,
			}, nil)
	}

	result := &models.ProvisionedStack{
		StackName: st.Name,
		SubnetIDs: make(map[string]string),
	}
	var undo []undoFunc

	fail := func(stage string, err error) (*models.ProvisionedStack, error) {
		logger.Error("Apply failed, rolling back",
			zap.String("operation", "apply_rollback"),
			zap.String("stage", stage),
			zap.Error(err),
		)
		s.rollback(ctx, undo)
		return nil, errors.New(errors.ErrApply, "apply failed during "+stage,
			map[string]interface{}{
				"stack": st.Name,
				"stage": stage,
			}, err)
	}

	// Network
	vpcID, err := s.cloud.FindVPC(ctx, st.Name)
	if err != nil {
		return fail("vpc_lookup", err)
	}
	if vpcID == "" {
		vpcID, err = s.cloud.CreateVPC(ctx, st.Name, st.Network)
		if err != nil {
			return fail("vpc_create", err)
		}
		undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteVPC(ctx, vpcID) })
	}
	result.VpcID = vpcID

	for _, plan := range st.SubnetPlans {
		subnetID, err := s.cloud.FindSubnet(ctx, st.Name, plan.Name)
		if err != nil {
			return fail("subnet_lookup", err)
		}
		if subnetID == "" {
			subnetID, err = s.cloud.CreateSubnet(ctx, st.Name, vpcID, azs[plan.AZIndex], plan)
			if err != nil {
				return fail("subnet_create", err)
			}
			id := subnetID
			undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteSubnet(ctx, id) })
		}
		result.SubnetIDs[plan.Name] = subnetID
		switch plan.Role {
		case stack.RolePublic:
			result.PublicSubnetIDs = append(result.PublicSubnetIDs, subnetID)
		case stack.RolePrivateWithEgress:
			result.PrivateSubnetIDs = append(result.PrivateSubnetIDs, subnetID)
		}
	}

	if len(result.PublicSubnetIDs) == 0 {
		return fail("subnet_plan", errors.New(errors.ErrApply, "stack has no public subnet for the instance", nil, nil))
	}

	// Internet gateway and public routing
	igwID, err := s.cloud.FindInternetGateway(ctx, st.Name)
	if err != nil {
		return fail("igw_lookup", err)
	}
	if igwID == "" {
		igwID, err = s.cloud.CreateInternetGateway(ctx, st.Name, vpcID)
		if err != nil {
			return fail("igw_create", err)
		}
		undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteInternetGateway(ctx, igwID, vpcID) })
	}
	result.InternetGatewayID = igwID

	publicRT, privateRT := awsd.RouteTableNames()

	publicRTID, err := s.cloud.FindRouteTable(ctx, st.Name, publicRT)
	if err != nil {
		return fail("public_route_table_lookup", err)
	}
	if publicRTID == "" {
		publicRTID, err = s.cloud.CreateRouteTable(ctx, st.Name, vpcID, publicRT)
		if err != nil {
			return fail("public_route_table_create", err)
		}
		id := publicRTID
		undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteRouteTable(ctx, id) })

		if err := s.cloud.CreateInternetRoute(ctx, publicRTID, igwID); err != nil {
			return fail("public_route_create", err)
		}
		for _, subnetID := range result.PublicSubnetIDs {
			if err := s.cloud.AssociateRouteTable(ctx, publicRTID, subnetID); err != nil {
				return fail("public_route_associate", err)
			}
		}
	}
	result.PublicRouteTableID = publicRTID

	// NAT path for egress-only subnets
	if len(result.PrivateSubnetIDs) > 0 {
		allocationID, err := s.cloud.FindAddress(ctx, st.Name)
		if err != nil {
			return fail("eip_lookup", err)
		}
		if allocationID == "" {
			allocationID, err = s.cloud.AllocateAddress(ctx, st.Name)
			if err != nil {
				return fail("eip_allocate", err)
			}
			id := allocationID
			undo = append(undo, func(ctx context.Context) error { return s.cloud.ReleaseAddress(ctx, id) })
		}
		result.AllocationID = allocationID

		natID, err := s.cloud.FindNatGateway(ctx, st.Name)
		if err != nil {
			return fail("nat_lookup", err)
		}
		if natID == "" {
			natID, err = s.cloud.CreateNatGateway(ctx, st.Name, result.PublicSubnetIDs[0], allocationID)
			if err != nil {
				return fail("nat_create", err)
			}
			id := natID
			undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteNatGateway(ctx, id) })

			if err := s.waitForNatGateway(ctx, natID); err != nil {
				return fail("nat_wait", err)
			}
		}
		result.NatGatewayID = natID

		privateRTID, err := s.cloud.FindRouteTable(ctx, st.Name, privateRT)
		if err != nil {
			return fail("private_route_table_lookup", err)
		}
		if privateRTID == "" {
			privateRTID, err = s.cloud.CreateRouteTable(ctx, st.Name, vpcID, privateRT)
			if err != nil {
				return fail("private_route_table_create", err)
			}
			id := privateRTID
			undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteRouteTable(ctx, id) })

			if err := s.cloud.CreateNatRoute(ctx, privateRTID, natID); err != nil {
				return fail("private_route_create", err)
			}
			for _, subnetID := range result.PrivateSubnetIDs {
				if err := s.cloud.AssociateRouteTable(ctx, privateRTID, subnetID); err != nil {
					return fail("private_route_associate", err)
				}
			}
		}
		result.PrivateRouteTableID = privateRTID
	}

	// Security group
	sgID, err := s.cloud.FindSecurityGroup(ctx, st.Name)
	if err != nil {
		return fail("sg_lookup", err)
	}
	if sgID == "" {
		sgID, err = s.cloud.CreateSecurityGroup(ctx, st.Name, vpcID, st.SecurityGroup)
		if err != nil {
			return fail("sg_create", err)
		}
		id := sgID
		undo = append(undo, func(ctx context.Context) error { return s.cloud.DeleteSecurityGroup(ctx, id) })
	}
	result.SecurityGroupID = sgID

	// Instance
	instanceID, err := s.cloud.FindInstance(ctx, st.Name)
	if err != nil {
		return fail("instance_lookup", err)
	}
	if instanceID == "" {
		instanceID, err = s.cloud.RunInstance(ctx, st.Name, awsd.RunInstanceInput{
			InstanceType:    st.Instance.InstanceType,
			ImageID:         imageID,
			SubnetID:        result.PublicSubnetIDs[0],
			SecurityGroupID: sgID,
			KeyName:         st.Instance.KeyName,
			UserData:        st.Instance.BootScript.Render(),
		})
		if err != nil {
			return fail("instance_run", err)
		}
		id := instanceID
		undo = append(undo, func(ctx context.Context) error { return s.cloud.TerminateInstance(ctx, id) })
	}
	result.InstanceID = instanceID

	instance, err := s.waitForInstance(ctx, instanceID)
	if err != nil {
		return fail("instance_wait", err)
	}

	outputs, err := resolveOutputs(st, result, instance)
	if err != nil {
		return fail("outputs", err)
	}
	result.Outputs = outputs

	logger.Info("Apply complete",
		zap.String("operation", "apply_complete"),
		zap.String("vpc_id", result.VpcID),
		zap.String("instance_id", result.InstanceID),
	)
	return result, nil
}

// rollback unwinds created resources in reverse order. Rollback failures
// are logged and swallowed; the original apply error is what surfaces.
func (s *Service) rollback(ctx context.Context, undo []undoFunc) {
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](ctx); err != nil {
			s.logger.Error("Rollback step failed",
				zap.String("operation", "rollback"),
				zap.Error(errors.New(errors.ErrRollback, "could not revert resource", nil, err)),
			)
		}
	}
}

// Destroy tears the stack down in reverse dependency order. Resources that
// no longer exist are skipped, so destroy is safe to re-run.
func (s *Service) Destroy(ctx context.Context, st *stack.Stack) error {
	logger := s.logger.With(
		zap.String("function", "Destroy"),
		zap.String("stack", st.Name),
	)

	logger.Info("Destroy started",
		zap.String("operation", "destroy_start"),
	)

	instanceID, err := s.cloud.FindInstance(ctx, st.Name)
	if err != nil {
		return errors.New(errors.ErrDestroy, "instance lookup failed", nil, err)
	}
	if instanceID != "" {
		if err := s.cloud.TerminateInstance(ctx, instanceID); err != nil {
			return errors.New(errors.ErrDestroy, "instance termination failed",
				map[string]interface{}{
					"instance_id": instanceID,
				}, err)
		}
		if err := s.waitForInstanceGone(ctx, instanceID); err != nil {
			return err
		}
	}

	sgID, err := s.cloud.FindSecurityGroup(ctx, st.Name)
	if err != nil {
		return errors.New(errors.ErrDestroy, "security group lookup failed", nil, err)
	}
	if sgID != "" {
		if err := s.cloud.DeleteSecurityGroup(ctx, sgID); err != nil {
			return errors.New(errors.ErrDestroy, "security group deletion failed",
				map[string]interface{}{
					"group_id": sgID,
				}, err)
		}
	}

	natID, err := s.cloud.FindNatGateway(ctx, st.Name)
	if err != nil {
		return errors.New(errors.ErrDestroy, "NAT gateway lookup failed", nil, err)
	}
	if natID != "" {
		if err := s.cloud.DeleteNatGateway(ctx, natID); err != nil {
			return errors.New(errors.ErrDestroy, "NAT gateway deletion failed",
				map[string]interface{}{
					"nat_id": natID,
				}, err)
		}
		if err := s.waitForNatGatewayGone(ctx, natID); err != nil {
			return err
		}
	}

	allocationID, err := s.cloud.FindAddress(ctx, st.Name)
	if err != nil {
		return errors.New(errors.ErrDestroy, "address lookup failed", nil, err)
	}
	if allocationID != "" {
		if err := s.cloud.ReleaseAddress(ctx, allocationID); err != nil {
			return errors.New(errors.ErrDestroy, "address release failed",
				map[string]interface{}{
					"allocation_id": allocationID,
				}, err)
		}
	}

	publicRT, privateRT := awsd.RouteTableNames()
	for _, name := range []string{privateRT, publicRT} {
		rtID, err := s.cloud.FindRouteTable(ctx, st.Name, name)
		if err != nil {
			return errors.New(errors.ErrDestroy, "route table lookup failed", nil, err)
		}
		if rtID != "" {
			if err := s.cloud.DeleteRouteTable(ctx, rtID); err != nil {
				return errors.New(errors.ErrDestroy, "route table deletion failed",
					map[string]interface{}{
						"route_table_id": rtID,
					}, err)
			}
		}
	}

	vpcID, err := s.cloud.FindVPC(ctx, st.Name)
	if err != nil {
		return errors.New(errors.ErrDestroy, "VPC lookup failed", nil, err)
	}

	igwID, err := s.cloud.FindInternetGateway(ctx, st.Name)
	if err != nil {
		return errors.New(errors.ErrDestroy, "internet gateway lookup failed", nil, err)
	}
	if igwID != "" && vpcID != "" {
		if err := s.cloud.DeleteInternetGateway(ctx, igwID, vpcID); err != nil {
			return errors.New(errors.ErrDestroy, "internet gateway deletion failed",
				map[string]interface{}{
					"igw_id": igwID,
				}, err)
		}
	}

	for _, plan := range st.SubnetPlans {
		subnetID, err := s.cloud.FindSubnet(ctx, st.Name, plan.Name)
		if err != nil {
			return errors.New(errors.ErrDestroy, "subnet lookup failed", nil, err)
		}
		if subnetID != "" {
			if err := s.cloud.DeleteSubnet(ctx, subnetID); err != nil {
				return errors.New(errors.ErrDestroy, "subnet deletion failed",
					map[string]interface{}{
						"subnet_id": subnetID,
					}, err)
			}
		}
	}

	if vpcID != "" {
		if err := s.cloud.DeleteVPC(ctx, vpcID); err != nil {
			return errors.New(errors.ErrDestroy, "VPC deletion failed",
				map[string]interface{}{
					"vpc_id": vpcID,
				}, err)
		}
	}

	logger.Info("Destroy complete",
		zap.String("operation", "destroy_complete"),
	)
	return nil
}
